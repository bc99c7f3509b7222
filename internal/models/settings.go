package models

// RoomSettings captures the room-time configuration chosen at creation:
// match length, seat cap, per-turn clock, joker and penalty options.
type RoomSettings struct {
	MaxPlayers   int  `json:"maxPlayers"`
	Rounds       int  `json:"rounds"`
	PointsToWin  int  `json:"pointsToWin"`
	TimePerTurn  int  `json:"timePerTurn"` // seconds; 0 disables the clock
	PaperJokers  bool `json:"paperJokers"`
	BotSeats     int  `json:"botSeats"`

	// Penalty overrides; zero means the table default.
	InvalidDeclarePenalty int `json:"invalidDeclarePenalty,omitempty"`
	FirstDropPenalty      int `json:"firstDropPenalty,omitempty"`
	MidDropPenalty        int `json:"midDropPenalty,omitempty"`

	EliminateOnInvalidDeclare bool `json:"eliminateOnInvalidDeclare,omitempty"`
}

// DefaultRoomSettings mirrors the standard table: two seats, five rounds,
// a 30 second clock, paper jokers in.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		MaxPlayers:  2,
		Rounds:      5,
		PointsToWin: 500,
		TimePerTurn: 30,
		PaperJokers: true,
	}
}

// Normalize clamps every field into its legal range so a hostile create
// payload cannot produce an undealable table.
func (s RoomSettings) Normalize() RoomSettings {
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	s.MaxPlayers = clamp(s.MaxPlayers, 2, 6)
	s.Rounds = clamp(s.Rounds, 1, 20)
	if s.PointsToWin != 0 {
		s.PointsToWin = clamp(s.PointsToWin, 50, 5000)
	}
	if s.TimePerTurn != 0 {
		s.TimePerTurn = clamp(s.TimePerTurn, 15, 120)
	}
	s.BotSeats = clamp(s.BotSeats, 0, s.MaxPlayers-1)
	if s.InvalidDeclarePenalty < 0 {
		s.InvalidDeclarePenalty = 0
	}
	if s.FirstDropPenalty < 0 {
		s.FirstDropPenalty = 0
	}
	if s.MidDropPenalty < 0 {
		s.MidDropPenalty = 0
	}
	return s
}
