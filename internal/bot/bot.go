// Package bot implements a heuristic computer opponent. It plays through
// the same action surface as a human and sees only what that seat would
// see: its own hand, the discard top, and the face-up wild card.
package bot

import "github.com/9553s/casino-rummy-master/engine"

// Action is the kind of move the bot wants to make.
type Action int

const (
	ActDraw Action = iota
	ActDiscard
	ActDeclare
)

// Decision is one chosen move. Source is set for draws, Slot for discards
// and declares.
type Decision struct {
	Action Action
	Source engine.DrawSource
	Slot   engine.Slot
}

// View is the table as the bot's seat sees it. The lookup funcs resolve
// card identity for the bot's own slots and the public discard top; the
// game layer never hands over the full round state.
type View struct {
	Phase      engine.Phase
	Hand       []engine.Slot
	DiscardTop engine.Slot // NoSlot when the pile is empty

	Card  func(engine.Slot) engine.Card
	Wild  func(engine.Slot) bool
	Value func(engine.Slot) int16

	// CanDeclare reports whether discarding the given slot leaves a hand
	// that would pass validation.
	CanDeclare func(discard engine.Slot) bool
}

// Decide picks the bot's next move for the current phase.
func Decide(v View) Decision {
	if v.Phase == engine.PhaseAwaitingDraw {
		return Decision{Action: ActDraw, Source: pickDrawSource(v)}
	}
	return decideDischarge(v)
}

// pickDrawSource takes the discard top when it is a wild or extends an
// existing pair or run fragment; otherwise draws blind from the stock.
func pickDrawSource(v View) engine.DrawSource {
	top := v.DiscardTop
	if top == engine.NoSlot {
		return engine.DrawDeck
	}
	if v.Wild(top) {
		return engine.DrawDiscard
	}
	if synergy(v, top) >= 2 {
		return engine.DrawDiscard
	}
	return engine.DrawDeck
}

// decideDischarge handles the 14-card half of the turn: declare when a
// winning discard exists, else shed the worst card.
func decideDischarge(v View) Decision {
	worst := engine.NoSlot
	worstScore := int16(-1)

	for _, slot := range v.Hand {
		if v.CanDeclare != nil && v.CanDeclare(slot) {
			return Decision{Action: ActDeclare, Slot: slot}
		}
		if v.Wild(slot) {
			// Wilds cover anything; never throw one away.
			continue
		}
		// Cost of keeping: face value minus how much the rest of the hand
		// wants this card. High loose cards go first.
		score := v.Value(slot) - 4*int16(synergy(v, slot))
		if score > worstScore {
			worstScore = score
			worst = slot
		}
	}

	if worst == engine.NoSlot {
		// Hand is all wilds somehow; any discard is as good as another.
		worst = v.Hand[len(v.Hand)-1]
	}
	return Decision{Action: ActDiscard, Slot: worst}
}

// synergy counts how many other hand cards pair or neighbor the candidate:
// same rank (set material) or same suit within two ranks (run material).
func synergy(v View, candidate engine.Slot) int {
	c := v.Card(candidate)
	if c.IsPrintedJoker() {
		return 0
	}
	n := 0
	for _, slot := range v.Hand {
		if slot == candidate {
			continue
		}
		o := v.Card(slot)
		if o.IsPrintedJoker() {
			continue
		}
		if o.Rank() == c.Rank() && o.Suit() != c.Suit() {
			n++
			continue
		}
		if o.Suit() == c.Suit() {
			d := int(o.Rank()) - int(c.Rank())
			if d >= -2 && d <= 2 && d != 0 {
				n++
			}
		}
	}
	return n
}
