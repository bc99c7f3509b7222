// engine_adapter.go — bridge between engine.RoundState and RummyGame.
package game

import (
	"errors"

	"github.com/9553s/casino-rummy-master/engine"
	"github.com/9553s/casino-rummy-master/internal/models"
)

// mapSettingsToRules maps room settings onto engine rules, falling back to
// the table defaults for any zero-valued field.
func mapSettingsToRules(s models.RoomSettings) engine.Rules {
	rules := engine.DefaultRules()
	rules.Players = uint8(s.MaxPlayers)
	rules.PaperJokers = s.PaperJokers
	if s.Rounds > 0 {
		rules.Rounds = uint8(s.Rounds)
	}
	if s.PointsToWin > 0 {
		rules.PointsToWin = int16(s.PointsToWin)
	}
	rules.TurnTimerSec = uint16(s.TimePerTurn)
	if s.InvalidDeclarePenalty > 0 {
		rules.InvalidDeclarePenalty = int16(s.InvalidDeclarePenalty)
	}
	if s.FirstDropPenalty > 0 {
		rules.FirstDropPenalty = int16(s.FirstDropPenalty)
	}
	if s.MidDropPenalty > 0 {
		rules.MidDropPenalty = int16(s.MidDropPenalty)
	}
	rules.EliminateOnInvalidDeclare = s.EliminateOnInvalidDeclare
	return rules
}

// eventCardHidden describes a card by slot only, identity withheld.
func eventCardHidden(slot engine.Slot) *EventCard {
	return &EventCard{Slot: uint8(slot)}
}

// eventCardRevealed describes a card with full identity.
func (g *RummyGame) eventCardRevealed(slot engine.Slot) *EventCard {
	c := g.Round.SlotCard(slot)
	if c == engine.EmptyCard {
		return eventCardHidden(slot)
	}
	return &EventCard{
		Slot:  uint8(slot),
		Rank:  engine.RankName(c.Rank()),
		Suit:  engine.SuitName(c.Suit()),
		Value: int(c.Value()),
		Wild:  g.Round.IsWild(slot),
	}
}

// eventHand renders a full hand revealed.
func (g *RummyGame) eventHand(hand []engine.Slot) []EventCard {
	out := make([]EventCard, len(hand))
	for i, slot := range hand {
		out[i] = *g.eventCardRevealed(slot)
	}
	return out
}

// eventMelds renders a meld decomposition revealed, for declare payloads.
func (g *RummyGame) eventMelds(melds []engine.Meld) []map[string]interface{} {
	out := make([]map[string]interface{}, len(melds))
	for i, m := range melds {
		var kind string
		switch m.Kind {
		case engine.MeldPureSequence:
			kind = "pure_sequence"
		case engine.MeldImpureSequence:
			kind = "impure_sequence"
		case engine.MeldSet:
			kind = "set"
		}
		out[i] = map[string]interface{}{
			"kind":  kind,
			"cards": g.eventHand(m.Slots),
		}
	}
	return out
}

// rejectCode classifies an engine error into a stable wire code.
func rejectCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, engine.ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, engine.ErrCardNotInHand):
		return "card_not_in_hand"
	case errors.Is(err, engine.ErrDiscardEmpty):
		return "discard_empty"
	case errors.Is(err, engine.ErrSeatOut):
		return "seat_out"
	case errors.Is(err, engine.ErrRoundOver):
		return "round_over"
	default:
		return "rejected"
	}
}

// payloadSlot extracts a slot id from an intent payload.
func payloadSlot(payload map[string]interface{}) (engine.Slot, bool) {
	v, ok := payload["slot"].(float64)
	if !ok || v < 0 || v >= float64(engine.MaxSlots) {
		return engine.NoSlot, false
	}
	return engine.Slot(v), true
}
