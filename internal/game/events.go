package game

import "github.com/google/uuid"

// GameEventType labels an event broadcast to clients over the room socket.
type GameEventType string

const (
	EventPlayerList       GameEventType = "player_list"          // Public: full seat roster.
	EventPlayerJoined     GameEventType = "player_joined"        // Public: a seat was taken.
	EventPlayerLeft       GameEventType = "player_left"          // Public: a seat was vacated or dropped.
	EventPlayerReady      GameEventType = "player_ready"         // Public: lobby readiness toggled.
	EventGameStart        GameEventType = "game_start"           // Public: match began.
	EventRoundStart       GameEventType = "round_start"          // Public: new round dealt; wild joker revealed.
	EventGamePlayerTurn   GameEventType = "game_player_turn"     // Public: whose turn it is.
	EventPlayerDraw       GameEventType = "player_draw"          // Public: seat drew (card hidden unless from discard).
	EventPrivateDraw      GameEventType = "private_draw"         // Private: details of the drawn card.
	EventPlayerDiscard    GameEventType = "player_discard"       // Public: discarded card revealed.
	EventStockReshuffle   GameEventType = "game_reshuffle_stock" // Public: discard pile folded back into the draw pile.
	EventPlayerDeclared   GameEventType = "player_declared"      // Public: declare outcome, melds or exposed hand.
	EventPlayerWithdrew   GameEventType = "player_withdrew"      // Public: seat dropped out of the round.
	EventActionRejected   GameEventType = "action_rejected"      // Private: intent refused, no state change.
	EventRoundEnd         GameEventType = "round_end"            // Public: round scores.
	EventMatchEnd         GameEventType = "match_end"            // Public: final standings.
	EventPrivateSyncState GameEventType = "private_sync_state"   // Private: full obfuscated snapshot.
)

// EventSeat identifies a seat within an event payload.
type EventSeat struct {
	ID   uuid.UUID `json:"id"`
	Seat uint8     `json:"seat"`
	Name string    `json:"name,omitempty"`
}

// EventCard describes one physical card within an event payload. Slot is
// the card's stable per-round id; identity fields are set only when the
// card is visible to the recipient.
type EventCard struct {
	Slot  uint8  `json:"slot"`
	Rank  string `json:"rank,omitempty"`
	Suit  string `json:"suit,omitempty"`
	Value int    `json:"value,omitempty"`
	Wild  bool   `json:"wild,omitempty"`
}

// GameEvent is the wire envelope for every server-to-client message.
type GameEvent struct {
	Type GameEventType `json:"type"`
	Seat *EventSeat    `json:"seat,omitempty"` // The seat acting or affected.
	Card *EventCard    `json:"card,omitempty"` // Primary card involved.

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *ObfRoomState `json:"state,omitempty"` // Full snapshot for sync events.
}

// OnMatchEndFunc runs when a match finishes, with the winner (Nil on an
// aborted match) and final totals keyed by player id.
type OnMatchEndFunc func(roomCode string, winner uuid.UUID, totals map[uuid.UUID]int)
