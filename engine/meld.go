package engine

import "sort"

// MeldKind classifies a grouped subset of a hand.
type MeldKind uint8

const (
	MeldPureSequence   MeldKind = iota // 3+ consecutive same-suit ranks, no wilds
	MeldImpureSequence                 // run with at least one wild filling a rank
	MeldSet                            // 3+ of a rank, distinct suits, wilds allowed
)

// Meld is a validated group of physical cards.
type Meld struct {
	Kind  MeldKind
	Slots []Slot
}

// ValidateHand checks whether a 13-card hand is a legal declaration under
// this round's wild designation: at least one pure sequence, at least two
// sequences total, and every card covered by a valid meld.
//
// Any one complete decomposition satisfies the check; the search does not
// look for a scoring-optimal arrangement. On failure, Uncovered carries the
// cards the best-effort grouping could not place.
func ValidateHand(r *RoundState, hand []Slot) DeclareResult {
	res := DeclareResult{Discarded: NoSlot}
	if len(hand) != HandSize {
		res.Uncovered = append(res.Uncovered, hand...)
		return res
	}

	ctx := newHandCtx(r, hand)
	if melds, ok := ctx.searchCover(nil); ok {
		res.Valid = true
		res.Melds = melds
		return res
	}

	_, deadwood, _ := Evaluate(r, hand)
	res.Uncovered = deadwood
	return res
}

// Evaluate finds a minimum-point grouping of an arbitrary hand: the melds,
// the ungrouped (deadwood) slots, and their point total. Used at round end
// to score losing hands; the declare sequence rule is not applied here.
func Evaluate(r *RoundState, hand []Slot) (melds []Meld, deadwood []Slot, points int16) {
	ctx := newHandCtx(r, hand)
	return ctx.searchBest()
}

// SortHand orders a hand for display and bot reasoning: wilds last,
// naturals by suit then rank, mirroring the table's arrange action.
func SortHand(r *RoundState, hand []Slot) []Slot {
	out := make([]Slot, len(hand))
	copy(out, hand)
	sort.Slice(out, func(i, j int) bool {
		wi, wj := r.IsWild(out[i]), r.IsWild(out[j])
		if wi != wj {
			return !wi
		}
		ci, cj := r.SlotCard(out[i]), r.SlotCard(out[j])
		if ci.Suit() != cj.Suit() {
			return ci.Suit() < cj.Suit()
		}
		if ci.Rank() != cj.Rank() {
			return ci.Rank() < cj.Rank()
		}
		return out[i] < out[j]
	})
	return out
}

// ---------------------------------------------------------------------------
// decomposition search
// ---------------------------------------------------------------------------

type natCard struct {
	slot Slot
	suit uint8
	rank uint8
}

// candidate is a potential meld: natural member indices plus a wild count.
// Sequence candidates keep their rank window so leftover wilds can extend
// them later; set candidates keep their member cap.
type candidate struct {
	kind    MeldKind
	members []int // indices into ctx.nat
	wilds   int
	suit    uint8 // sequences
	start   uint8 // sequences: low rank of the window
	end     uint8 // sequences: high rank of the window
}

type handCtx struct {
	r     *RoundState
	nat   []natCard
	used  []bool
	wilds []Slot
	wused int
}

func newHandCtx(r *RoundState, hand []Slot) *handCtx {
	ctx := &handCtx{r: r}
	for _, s := range hand {
		if r.IsWild(s) {
			ctx.wilds = append(ctx.wilds, s)
			continue
		}
		c := r.SlotCard(s)
		ctx.nat = append(ctx.nat, natCard{slot: s, suit: c.Suit(), rank: c.Rank()})
	}
	sort.Slice(ctx.nat, func(i, j int) bool {
		a, b := ctx.nat[i], ctx.nat[j]
		if a.suit != b.suit {
			return a.suit < b.suit
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.slot < b.slot
	})
	ctx.used = make([]bool, len(ctx.nat))
	return ctx
}

func (ctx *handCtx) wildsLeft() int { return len(ctx.wilds) - ctx.wused }

// firstUnused returns the index of the first uncovered natural, or -1.
func (ctx *handCtx) firstUnused() int {
	for i := range ctx.nat {
		if !ctx.used[i] {
			return i
		}
	}
	return -1
}

// findUnused locates an uncovered natural of the given suit and rank that
// is not already claimed in taken. Duplicate-deck copies are
// interchangeable, so the first match suffices.
func (ctx *handCtx) findUnused(suit, rank uint8, taken []int) int {
	for i, n := range ctx.nat {
		if ctx.used[i] || n.suit != suit || n.rank != rank {
			continue
		}
		claimed := false
		for _, t := range taken {
			if t == i {
				claimed = true
				break
			}
		}
		if !claimed {
			return i
		}
	}
	return -1
}

// searchCover tries to cover every card with valid melds and satisfy the
// declare sequence rule. Returns the decomposition on success.
func (ctx *handCtx) searchCover(acc []candidate) ([]Meld, bool) {
	anchor := ctx.firstUnused()
	if anchor < 0 {
		return ctx.placeLeftoverWilds(acc)
	}

	for _, cand := range ctx.candidatesFor(anchor) {
		ctx.apply(cand)
		if melds, ok := ctx.searchCover(append(acc, cand)); ok {
			return melds, true
		}
		ctx.revert(cand)
	}
	return nil, false
}

// placeLeftoverWilds handles wilds remaining after every natural is covered:
// they may form an all-wild group, extend a sequence window, or join a set
// below four members. Absorption targets are branched over because turning
// the only pure sequence impure would sink the declare.
func (ctx *handCtx) placeLeftoverWilds(acc []candidate) ([]Meld, bool) {
	w := ctx.wildsLeft()
	if w == 0 {
		if ctx.sequenceRuleMet(acc) {
			return ctx.buildMelds(acc), true
		}
		return nil, false
	}

	// All remaining wilds as one group. Three or more wilds always meld.
	if w >= 3 {
		cand := candidate{kind: MeldSet, wilds: w}
		ctx.apply(cand)
		if melds, ok := ctx.placeLeftoverWilds(append(acc, cand)); ok {
			return melds, true
		}
		ctx.revert(cand)
	}

	// Absorb one wild into each meld that has room, then recurse.
	for i := range acc {
		grown, ok := absorbWild(acc[i])
		if !ok {
			continue
		}
		saved := acc[i]
		acc[i] = grown
		ctx.wused++
		if melds, ok := ctx.placeLeftoverWilds(acc); ok {
			return melds, true
		}
		ctx.wused--
		acc[i] = saved
	}
	return nil, false
}

// absorbWild returns a copy of the candidate extended by one wild, if the
// meld can legally grow: sequences extend their rank window within A..K,
// sets are capped at four members (one per suit).
func absorbWild(c candidate) (candidate, bool) {
	switch c.kind {
	case MeldPureSequence, MeldImpureSequence:
		if c.end-c.start+1 >= HandSize {
			return c, false
		}
		grown := c
		grown.kind = MeldImpureSequence
		grown.wilds++
		if grown.end < RankKing {
			grown.end++
		} else if grown.start > RankAce {
			grown.start--
		} else {
			return c, false
		}
		return grown, true
	case MeldSet:
		if len(c.members)+c.wilds >= 4 {
			return c, false
		}
		grown := c
		grown.wilds++
		return grown, true
	}
	return c, false
}

// candidatesFor enumerates every meld that could cover the anchor natural,
// pure sequences first so typical legal hands resolve without backtracking.
func (ctx *handCtx) candidatesFor(anchor int) []candidate {
	var pure, rest []candidate

	a := ctx.nat[anchor]
	avail := ctx.wildsLeft()

	// Sequences: every window [start..end] of length >= 3 containing the
	// anchor rank. Each rank is filled by a natural or branches to a wild,
	// since freeing a duplicate natural for another meld can matter.
	for start := RankAce; start <= a.rank; start++ {
		for end := a.rank; end <= RankKing; end++ {
			if end-start+1 < 3 {
				continue
			}
			ctx.assembleRuns(anchor, start, end, start, candidate{
				kind:  MeldPureSequence,
				suit:  a.suit,
				start: start,
				end:   end,
			}, avail, &pure, &rest)
		}
	}

	// Sets: same rank across distinct suits, optionally topped with wilds.
	ctx.assembleSets(anchor, avail, &rest)

	return append(pure, rest...)
}

// assembleRuns fills window ranks one at a time, branching natural vs wild,
// and emits completed sequence candidates.
func (ctx *handCtx) assembleRuns(anchor int, start, end, next uint8, c candidate, wildBudget int, pure, rest *[]candidate) {
	if next > end {
		if len(c.members) == 0 {
			return
		}
		anchored := false
		for _, m := range c.members {
			if m == anchor {
				anchored = true
				break
			}
		}
		if !anchored {
			return
		}
		out := c
		out.members = append([]int(nil), c.members...)
		if out.wilds == 0 {
			*pure = append(*pure, out)
		} else {
			out.kind = MeldImpureSequence
			*rest = append(*rest, out)
		}
		return
	}

	suit := ctx.nat[anchor].suit
	if i := ctx.findUnused(suit, next, c.members); i >= 0 {
		c.members = append(c.members, i)
		ctx.assembleRuns(anchor, start, end, next+1, c, wildBudget, pure, rest)
		c.members = c.members[:len(c.members)-1]
	}
	// The anchor's own rank must use the anchor, never a wild.
	if next != ctx.nat[anchor].rank && c.wilds < wildBudget {
		c.wilds++
		ctx.assembleRuns(anchor, start, end, next+1, c, wildBudget, pure, rest)
		c.wilds--
	}
}

// assembleSets emits set candidates containing the anchor: subsets of the
// other suits at the anchor's rank, plus 0..n wilds, sized 3 or 4.
func (ctx *handCtx) assembleSets(anchor int, wildBudget int, out *[]candidate) {
	a := ctx.nat[anchor]

	// At most one card per other suit; duplicates of a suit can't share a set.
	var others []int
	for suit := SuitSpades; suit <= SuitClubs; suit++ {
		if suit == a.suit {
			continue
		}
		if i := ctx.findUnused(suit, a.rank, []int{anchor}); i >= 0 {
			others = append(others, i)
		}
	}

	for mask := 0; mask < 1<<len(others); mask++ {
		members := []int{anchor}
		for b, idx := range others {
			if mask&(1<<b) != 0 {
				members = append(members, idx)
			}
		}
		maxWilds := 4 - len(members)
		if maxWilds > wildBudget {
			maxWilds = wildBudget
		}
		for w := 0; w <= maxWilds; w++ {
			if len(members)+w < 3 {
				continue
			}
			*out = append(*out, candidate{
				kind:    MeldSet,
				members: append([]int(nil), members...),
				wilds:   w,
			})
		}
	}
}

func (ctx *handCtx) apply(c candidate) {
	for _, m := range c.members {
		ctx.used[m] = true
	}
	ctx.wused += c.wilds
}

func (ctx *handCtx) revert(c candidate) {
	for _, m := range c.members {
		ctx.used[m] = false
	}
	ctx.wused -= c.wilds
}

func (ctx *handCtx) sequenceRuleMet(acc []candidate) bool {
	pureCount, seqCount := 0, 0
	for _, c := range acc {
		switch c.kind {
		case MeldPureSequence:
			pureCount++
			seqCount++
		case MeldImpureSequence:
			seqCount++
		}
	}
	return pureCount >= 1 && seqCount >= 2
}

// buildMelds converts accepted candidates into Melds, assigning concrete
// wild slots in order.
func (ctx *handCtx) buildMelds(acc []candidate) []Meld {
	melds := make([]Meld, 0, len(acc))
	next := 0
	for _, c := range acc {
		m := Meld{Kind: c.kind}
		for _, idx := range c.members {
			m.Slots = append(m.Slots, ctx.nat[idx].slot)
		}
		for w := 0; w < c.wilds; w++ {
			m.Slots = append(m.Slots, ctx.wilds[next])
			next++
		}
		melds = append(melds, m)
	}
	return melds
}

// ---------------------------------------------------------------------------
// minimum-deadwood evaluation
// ---------------------------------------------------------------------------

// searchBest explores grouped-vs-ungrouped choices for each natural and
// returns the grouping with the lowest deadwood point total. Wilds score
// zero, so leftover wilds never add points.
func (ctx *handCtx) searchBest() ([]Meld, []Slot, int16) {
	best := struct {
		points int16
		acc    []candidate
		found  bool
	}{points: 1 << 14}

	var walk func(acc []candidate, dead int16)
	walk = func(acc []candidate, dead int16) {
		if dead >= best.points {
			return
		}
		anchor := ctx.firstUnused()
		if anchor < 0 {
			best.points = dead
			best.acc = append([]candidate(nil), acc...)
			best.found = true
			return
		}

		for _, cand := range ctx.candidatesFor(anchor) {
			ctx.apply(cand)
			walk(append(acc, cand), dead)
			ctx.revert(cand)
		}

		// Leave the anchor ungrouped.
		ctx.used[anchor] = true
		walk(acc, dead+ctx.nat[anchor].slotValue(ctx.r))
		ctx.used[anchor] = false
	}
	walk(nil, 0)

	if !best.found {
		return nil, nil, 0
	}
	melds := ctx.rebuildFor(best.acc)
	deadwood := ctx.deadwoodFor(best.acc)
	return melds, deadwood, best.points
}

func (n natCard) slotValue(r *RoundState) int16 {
	return r.SlotValue(n.slot)
}

// rebuildFor re-applies a candidate list just to emit Melds with slots.
func (ctx *handCtx) rebuildFor(acc []candidate) []Meld {
	return ctx.buildMelds(acc)
}

// deadwoodFor lists natural slots not covered by the accepted candidates.
func (ctx *handCtx) deadwoodFor(acc []candidate) []Slot {
	covered := make([]bool, len(ctx.nat))
	for _, c := range acc {
		for _, m := range c.members {
			covered[m] = true
		}
	}
	var out []Slot
	for i, n := range ctx.nat {
		if !covered[i] {
			out = append(out, n.slot)
		}
	}
	return out
}
