package engine

// Rules holds the configurable settings for a match. Point amounts come from
// room configuration, not constants, so a table can run with non-standard
// stakes without touching the engine.
type Rules struct {
	Players     uint8 // seats dealt into each round (2–6)
	Decks       uint8 // 0 = derive from Players (1 deck for 2 seats, else 2)
	PaperJokers bool  // include 2 printed jokers per deck

	Rounds      uint8 // rounds per match (1–20)
	PointsToWin int16 // cumulative-point elimination threshold; 0 disables

	TurnTimerSec uint16 // per-turn deadline; 0 disables the timer

	InvalidDeclarePenalty int16 // fixed charge for a failed declare
	FirstDropPenalty      int16 // withdrawal before ever drawing a card
	MidDropPenalty        int16 // withdrawal after play began
	HandPointsCap         int16 // max points a losing hand can score

	// EliminateOnInvalidDeclare removes a failed declarer from the round's
	// rotation instead of letting them keep playing.
	EliminateOnInvalidDeclare bool
}

// DefaultRules returns the standard table configuration. Amounts match the
// classic 80-point game.
func DefaultRules() Rules {
	return Rules{
		Players:               2,
		Decks:                 0,
		PaperJokers:           true,
		Rounds:                5,
		PointsToWin:           500,
		TurnTimerSec:          30,
		InvalidDeclarePenalty: 80,
		FirstDropPenalty:      20,
		MidDropPenalty:        40,
		HandPointsCap:         80,
	}
}

// numPlayers returns the effective seat count, treating 0 as 2.
func (r *Rules) numPlayers() uint8 {
	if r.Players == 0 {
		return 2
	}
	return r.Players
}

// deckCount returns the number of physical decks in the pool.
// Two seats play a single deck; larger tables need duplicates.
func (r *Rules) deckCount() uint8 {
	if r.Decks != 0 {
		return r.Decks
	}
	if r.numPlayers() <= 2 {
		return 1
	}
	return 2
}

// jokersPerDeck returns the printed joker count added per deck.
func (r *Rules) jokersPerDeck() uint8 {
	if r.PaperJokers {
		return 2
	}
	return 0
}
