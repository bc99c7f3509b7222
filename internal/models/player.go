package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is a seat occupant as the service sees it. Hand contents live in
// the engine; the model carries identity and connection state only.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Seat      uint8           `json:"seat"`
	IsBot     bool            `json:"isBot"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`
}

// GameAction is a decoded client intent targeting the game in progress.
type GameAction struct {
	ActionType string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
