package engine

import "errors"

// Protocol errors: the intent is rejected synchronously and no state changes.
var (
	ErrRoundOver     = errors.New("round is over")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrWrongPhase    = errors.New("wrong phase for this action")
	ErrSeatOut       = errors.New("seat is no longer in the round")
	ErrCardNotInHand = errors.New("card not in hand")
	ErrDiscardEmpty  = errors.New("discard pile is empty")
)

// ErrDeckEmpty is returned when the draw pile is exhausted and the discard
// pile holds no cards to reshuffle. Unlike the protocol errors it is a
// terminal round condition: the round ends with no result.
var ErrDeckEmpty = errors.New("draw pile exhausted")

// Draw moves one card from the chosen source into the seat's hand and
// advances the phase to AwaitingDiscardOrDeclare. Returns the drawn slot.
//
// When the draw pile is empty the discard pile minus its top card is
// reshuffled into a new draw pile first. If that leaves nothing to draw,
// the round terminates with no result and ErrDeckEmpty is returned.
func (r *RoundState) Draw(seat uint8, source DrawSource) (Slot, error) {
	if err := r.checkTurn(seat, PhaseAwaitingDraw); err != nil {
		return NoSlot, err
	}

	var drawn Slot
	switch source {
	case DrawDeck:
		if r.StockLen == 0 {
			r.reshuffleDiscards()
		}
		if r.StockLen == 0 {
			// Nothing left anywhere: dead round.
			r.NoResult = true
			r.Phase = PhaseRoundComplete
			return NoSlot, ErrDeckEmpty
		}
		r.StockLen--
		drawn = r.Stock[r.StockLen]
	case DrawDiscard:
		if r.DiscardLen == 0 {
			return NoSlot, ErrDiscardEmpty
		}
		r.DiscardLen--
		drawn = r.Discards[r.DiscardLen]
	default:
		return NoSlot, ErrWrongPhase
	}

	s := &r.Seats[seat]
	s.Hand[s.HandLen] = drawn
	s.HandLen++
	s.PickedUp = true
	r.Phase = PhaseAwaitingDiscardOrDeclare
	return drawn, nil
}

// Discard moves the named slot from the seat's hand onto the discard pile
// and passes the turn to the next in-round seat.
func (r *RoundState) Discard(seat uint8, slot Slot) error {
	if err := r.checkTurn(seat, PhaseAwaitingDiscardOrDeclare); err != nil {
		return err
	}
	idx := r.handIndex(seat, slot)
	if idx < 0 {
		return ErrCardNotInHand
	}
	r.removeFromHand(seat, idx)
	r.pushDiscard(slot)
	r.advanceTurn()
	return nil
}

// DeclareResult reports a declare outcome. Valid declares carry the meld
// decomposition; invalid ones carry the slots no legal grouping could cover,
// which the scoring controller uses for diagnostics.
type DeclareResult struct {
	Valid     bool
	Melds     []Meld
	Uncovered []Slot
	Discarded Slot
}

// Declare discards the named slot and submits the remaining 13 cards for
// validation, all as one atomic action.
//
// A valid declare ends the round with this seat as winner. An invalid one is
// a normal outcome, not an error: the declarer is charged the configured
// fixed penalty, their hand is exposed, and the round continues (or, in
// elimination mode, continues without them).
func (r *RoundState) Declare(seat uint8, discard Slot) (DeclareResult, error) {
	if err := r.checkTurn(seat, PhaseAwaitingDiscardOrDeclare); err != nil {
		return DeclareResult{}, err
	}
	idx := r.handIndex(seat, discard)
	if idx < 0 {
		return DeclareResult{}, ErrCardNotInHand
	}

	r.removeFromHand(seat, idx)
	r.pushDiscard(discard)

	res := ValidateHand(r, r.Hand(seat))
	res.Discarded = discard
	s := &r.Seats[seat]
	s.Exposed = true

	if res.Valid {
		r.Winner = int8(seat)
		r.Phase = PhaseRoundComplete
		return res, nil
	}

	s.Penalty += r.Rules.InvalidDeclarePenalty
	if r.Rules.EliminateOnInvalidDeclare {
		s.Status = SeatEliminated
		if r.finishIfRotationCollapsed() {
			return res, nil
		}
	}
	r.advanceTurn()
	return res, nil
}

// Withdraw removes a seat from the round's rotation at the reduced drop
// penalty: first-drop if the seat never picked up a card, mid-drop
// otherwise. The round continues for the remaining seats; if only one seat
// is left it wins by default.
func (r *RoundState) Withdraw(seat uint8) error {
	if r.IsTerminal() {
		return ErrRoundOver
	}
	if seat >= r.Rules.numPlayers() {
		return ErrSeatOut
	}
	s := &r.Seats[seat]
	if s.Status != SeatInRound {
		return ErrSeatOut
	}

	s.Status = SeatWithdrawn
	if s.PickedUp {
		s.Penalty += r.Rules.MidDropPenalty
	} else {
		s.Penalty += r.Rules.FirstDropPenalty
	}

	if r.finishIfRotationCollapsed() {
		return nil
	}
	if seat == r.Active {
		r.advanceTurn()
	}
	return nil
}

// ForcePlay runs the timeout auto-play for the active seat: draw from the
// deck if the seat has not drawn yet, then discard the first card in hand.
// The server injects this when the turn deadline elapses or the active seat
// is disconnected, so the round stays live without client cooperation.
func (r *RoundState) ForcePlay(seat uint8) (drawn, discarded Slot, err error) {
	drawn = NoSlot
	if r.Phase == PhaseAwaitingDraw {
		drawn, err = r.Draw(seat, DrawDeck)
		if err != nil {
			return NoSlot, NoSlot, err
		}
	}
	if r.Phase != PhaseAwaitingDiscardOrDeclare || r.Active != seat {
		return drawn, NoSlot, ErrWrongPhase
	}
	discarded = r.Seats[seat].Hand[0]
	if err := r.Discard(seat, discarded); err != nil {
		return drawn, NoSlot, err
	}
	return drawn, discarded, nil
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

// checkTurn validates seat and phase before any mutation.
func (r *RoundState) checkTurn(seat uint8, want Phase) error {
	if r.IsTerminal() {
		return ErrRoundOver
	}
	if seat >= r.Rules.numPlayers() || r.Seats[seat].Status != SeatInRound {
		return ErrSeatOut
	}
	if seat != r.Active {
		return ErrNotYourTurn
	}
	if r.Phase != want {
		return ErrWrongPhase
	}
	return nil
}

func (r *RoundState) removeFromHand(seat uint8, idx int) {
	s := &r.Seats[seat]
	copy(s.Hand[idx:], s.Hand[idx+1:s.HandLen])
	s.HandLen--
	s.Hand[s.HandLen] = NoSlot
}

func (r *RoundState) pushDiscard(slot Slot) {
	r.Discards[r.DiscardLen] = slot
	r.DiscardLen++
}

// reshuffleDiscards rebuilds the draw pile from the discard pile, keeping
// the current top card in place. Atomic and server-only.
func (r *RoundState) reshuffleDiscards() {
	if r.DiscardLen <= 1 {
		return
	}
	top := r.Discards[r.DiscardLen-1]
	n := r.DiscardLen - 1
	copy(r.Stock[:n], r.Discards[:n])
	r.StockLen = n
	r.Discards[0] = top
	r.DiscardLen = 1

	for i := int(r.StockLen) - 1; i > 0; i-- {
		j := int(r.randN(uint64(i + 1)))
		r.Stock[i], r.Stock[j] = r.Stock[j], r.Stock[i]
	}
}

// advanceTurn passes play to the next in-round seat.
func (r *RoundState) advanceTurn() {
	r.TurnNumber++
	r.Active = r.nextSeat(r.Active)
	r.Phase = PhaseAwaitingDraw
}

// finishIfRotationCollapsed ends the round when fewer than two seats remain,
// with the survivor as winner. Returns true if the round ended.
func (r *RoundState) finishIfRotationCollapsed() bool {
	if r.seatsInRound() >= 2 {
		return false
	}
	for p := uint8(0); p < r.Rules.numPlayers(); p++ {
		if r.Seats[p].Status == SeatInRound {
			r.Winner = int8(p)
			break
		}
	}
	r.Phase = PhaseRoundComplete
	return true
}
