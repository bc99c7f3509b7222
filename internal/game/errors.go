package game

import "errors"

// Room-level failures surfaced to the transport layer.
var (
	ErrGameFull         = errors.New("game: room is full")
	ErrMatchInProgress  = errors.New("game: match already in progress")
	ErrNotEnoughPlayers = errors.New("game: at least two players required")
	ErrSeatNotFound     = errors.New("game: no seat for player")
)
