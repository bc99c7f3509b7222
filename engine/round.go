// Package engine implements the Indian Rummy rules core.
//
// The package is dependency-free and operates on flat value types so the
// same state machine serves live rooms, bots, and tests without sharing.
// All mutation is validate-then-apply: an illegal transition returns an
// error before any field is touched.
package engine

const (
	MaxPlayers  = 6
	HandSize    = 13
	MaxHandSize = 14 // transiently 14 between draw and discard/declare
	MaxDecks    = 3
	MaxSlots    = MaxDecks * 54 // 52 cards + 2 printed jokers per deck
)

// Phase is the per-round turn phase.
type Phase uint8

const (
	PhaseAwaitingDraw Phase = iota
	PhaseAwaitingDiscardOrDeclare
	PhaseRoundComplete
)

// SeatStatus tracks a seat's participation in the current round's rotation.
// Connection status lives in the service layer; the engine only cares
// whether a seat still takes turns.
type SeatStatus uint8

const (
	SeatInRound SeatStatus = iota
	SeatWithdrawn
	SeatEliminated // removed after an invalid declare, mode-dependent
)

// DrawSource selects where a draw takes its card from.
type DrawSource uint8

const (
	DrawDeck DrawSource = iota
	DrawDiscard
)

// SeatState holds one seat's per-round state.
type SeatState struct {
	Hand     [MaxHandSize]Slot
	HandLen  uint8
	Status   SeatStatus
	PickedUp bool  // has this seat ever drawn a card (first-drop detection)
	Exposed  bool  // hand revealed after a failed declare or round end
	Penalty  int16 // fixed charges accrued mid-round (invalid declare, drop)
}

// RoundState is the complete, self-contained state of one round. It is a
// flat value type: copying it snapshots the round.
type RoundState struct {
	Pool    [MaxSlots]Card // slot id -> card identity, fixed for the round
	PoolLen uint8

	Stock      [MaxSlots]Slot
	StockLen   uint8
	Discards   [MaxSlots]Slot
	DiscardLen uint8

	Seats [MaxPlayers]SeatState

	WildSlot Slot  // face-up wild joker, set aside for the round
	WildRank uint8 // rank that plays wild (RankJoker when jokers are off)

	Active     uint8
	Phase      Phase
	TurnNumber uint16
	Winner     int8 // seat index of valid declarer; -1 while running
	NoResult   bool // stock and discard both exhausted

	RNG   uint64
	Rules Rules
}

// ---------------------------------------------------------------------------
// xorshift64 RNG — inline, no interface
// ---------------------------------------------------------------------------

func (r *RoundState) nextRand() uint64 {
	x := r.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.RNG = x
	return x
}

func (r *RoundState) randN(n uint64) uint64 {
	return r.nextRand() % n
}

// ---------------------------------------------------------------------------
// NewRound and Deal
// ---------------------------------------------------------------------------

// NewRound initializes a RoundState with the given seed and rules.
// The pool is built but not yet shuffled or dealt.
func NewRound(seed uint64, rules Rules) RoundState {
	var r RoundState
	r.RNG = seed
	if r.RNG == 0 {
		r.RNG = 1 // xorshift can't start at 0
	}
	r.Rules = rules
	r.Winner = -1
	r.WildSlot = NoSlot

	// Build the pool: deckCount × (52 cards + printed jokers).
	idx := uint8(0)
	for d := uint8(0); d < rules.deckCount(); d++ {
		for suit := SuitSpades; suit <= SuitClubs; suit++ {
			for rank := RankAce; rank <= RankKing; rank++ {
				r.Pool[idx] = NewCard(suit, rank)
				idx++
			}
		}
		for j := uint8(0); j < rules.jokersPerDeck(); j++ {
			r.Pool[idx] = PrintedJoker
			idx++
		}
	}
	r.PoolLen = idx

	// Stock starts as every slot in order; Deal shuffles it.
	for s := uint8(0); s < idx; s++ {
		r.Stock[s] = s
	}
	r.StockLen = idx

	return r
}

// Deal shuffles the pool and partitions it: 13 slots per seat, one face-up
// wild joker, one discard seed, remainder as the draw pile.
func (r *RoundState) Deal() {
	// Fisher-Yates over slot ids.
	for i := int(r.StockLen) - 1; i > 0; i-- {
		j := int(r.randN(uint64(i + 1)))
		r.Stock[i], r.Stock[j] = r.Stock[j], r.Stock[i]
	}

	// Seats marked out before the deal (eliminated in an earlier round of
	// the match) receive no cards and never enter the rotation.
	n := r.Rules.numPlayers()
	for c := uint8(0); c < HandSize; c++ {
		for p := uint8(0); p < n; p++ {
			if r.Seats[p].Status != SeatInRound {
				continue
			}
			r.StockLen--
			r.Seats[p].Hand[c] = r.Stock[r.StockLen]
			r.Seats[p].HandLen++
		}
	}

	// Flip the wild joker face-up. A flipped printed joker makes aces wild,
	// per the common table rule.
	r.StockLen--
	r.WildSlot = r.Stock[r.StockLen]
	wild := r.Pool[r.WildSlot]
	if wild.IsPrintedJoker() {
		r.WildRank = RankAce
	} else {
		r.WildRank = wild.Rank()
	}

	// Seed the discard pile.
	r.StockLen--
	r.Discards[0] = r.Stock[r.StockLen]
	r.DiscardLen = 1

	// Random starting seat among those dealt in.
	r.Active = uint8(r.randN(uint64(n)))
	if r.Seats[r.Active].Status != SeatInRound {
		r.Active = r.nextSeat(r.Active)
	}
	r.Phase = PhaseAwaitingDraw
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// SlotCard returns the card identity occupying a slot.
func (r *RoundState) SlotCard(slot Slot) Card {
	if slot == NoSlot || slot >= r.PoolLen {
		return EmptyCard
	}
	return r.Pool[slot]
}

// IsWild reports whether the physical card in a slot plays wild this round:
// a printed joker, or any suit of the wild joker's rank.
func (r *RoundState) IsWild(slot Slot) bool {
	c := r.SlotCard(slot)
	if c == EmptyCard {
		return false
	}
	if c.IsPrintedJoker() {
		return true
	}
	return r.WildRank != RankJoker && c.Rank() == r.WildRank
}

// SlotValue returns the points a slot counts against a losing hand.
// Wild cards count zero.
func (r *RoundState) SlotValue(slot Slot) int16 {
	if r.IsWild(slot) {
		return 0
	}
	return r.SlotCard(slot).Value()
}

// IsTerminal reports whether the round has ended.
func (r *RoundState) IsTerminal() bool { return r.Phase == PhaseRoundComplete }

// DiscardTop returns the slot on top of the discard pile, or NoSlot.
func (r *RoundState) DiscardTop() Slot {
	if r.DiscardLen == 0 {
		return NoSlot
	}
	return r.Discards[r.DiscardLen-1]
}

// Hand returns a copy of a seat's hand slots.
func (r *RoundState) Hand(seat uint8) []Slot {
	if seat >= r.Rules.numPlayers() {
		return nil
	}
	s := &r.Seats[seat]
	out := make([]Slot, s.HandLen)
	copy(out, s.Hand[:s.HandLen])
	return out
}

// handIndex locates a slot in a seat's hand, or -1.
func (r *RoundState) handIndex(seat uint8, slot Slot) int {
	s := &r.Seats[seat]
	for i := uint8(0); i < s.HandLen; i++ {
		if s.Hand[i] == slot {
			return int(i)
		}
	}
	return -1
}

// seatsInRound counts seats still taking turns.
func (r *RoundState) seatsInRound() uint8 {
	count := uint8(0)
	for p := uint8(0); p < r.Rules.numPlayers(); p++ {
		if r.Seats[p].Status == SeatInRound {
			count++
		}
	}
	return count
}

// nextSeat returns the next in-round seat after from, wrapping in seating
// order. Returns from itself when no other seat remains.
func (r *RoundState) nextSeat(from uint8) uint8 {
	n := r.Rules.numPlayers()
	for step := uint8(1); step <= n; step++ {
		cand := (from + step) % n
		if r.Seats[cand].Status == SeatInRound {
			return cand
		}
	}
	return from
}

// CheckIntegrity verifies the card-count invariant:
// |stock| + |discard| + Σ|hands| + wild slot = cards dealt.
// A violation means a transition mutated state without validating first;
// callers treat it as fatal for the room.
func (r *RoundState) CheckIntegrity() bool {
	if r.WildSlot == NoSlot {
		return true // not dealt yet
	}
	total := uint16(r.StockLen) + uint16(r.DiscardLen) + 1
	for p := uint8(0); p < r.Rules.numPlayers(); p++ {
		total += uint16(r.Seats[p].HandLen)
	}
	return total == uint16(r.PoolLen)
}
