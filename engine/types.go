package engine

// Suit constants — packed into the upper 4 bits of Card.
// Order follows table display order: spades, hearts, diamonds, clubs.
const (
	SuitSpades   uint8 = 0
	SuitHearts   uint8 = 1
	SuitDiamonds uint8 = 2
	SuitClubs    uint8 = 3
	SuitJoker    uint8 = 4 // printed joker
)

// Rank constants — packed into the lower 4 bits of Card.
// Ranks are 1-based (A=1 … K=13) so sequence arithmetic matches the
// table ordering directly. Aces are low only; no wraparound runs.
const (
	RankJoker uint8 = 0 // printed joker carries no rank
	RankAce   uint8 = 1
	RankTwo   uint8 = 2
	RankThree uint8 = 3
	RankFour  uint8 = 4
	RankFive  uint8 = 5
	RankSix   uint8 = 6
	RankSeven uint8 = 7
	RankEight uint8 = 8
	RankNine  uint8 = 9
	RankTen   uint8 = 10
	RankJack  uint8 = 11
	RankQueen uint8 = 12
	RankKing  uint8 = 13
)

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
// Card is identity only; duplicate identities exist in multi-deck play.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// PrintedJoker is the identity shared by every printed joker in the pool.
const PrintedJoker = Card(SuitJoker<<4 | RankJoker)

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// IsPrintedJoker reports whether the card is a printed joker.
func (c Card) IsPrintedJoker() bool { return c.Suit() == SuitJoker }

// Value returns the point value counted against a losing hand:
// A=1, pip cards face value, J/Q/K=10, printed joker 0.
// Wild-by-rank cards also score 0, but wildness depends on the deal,
// so RoundState.SlotValue is the authoritative per-round accessor.
func (c Card) Value() int16 {
	r := c.Rank()
	switch {
	case c == EmptyCard || r == RankJoker:
		return 0
	case r >= RankJack:
		return 10
	default:
		return int16(r)
	}
}

// Slot is a per-deal physical card id: an index into the round's pool.
// Duplicate-identity cards from multiple decks occupy distinct slots.
type Slot = uint8

// NoSlot marks an empty slot reference.
const NoSlot Slot = 0xFF

var suitStrings = [...]string{"S", "H", "D", "C", "J"}

var rankStrings = [...]string{"O", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// String renders a card as rank+suit, e.g. "7D", or "JOKER" for printed jokers.
func (c Card) String() string {
	if c == EmptyCard {
		return "--"
	}
	if c.IsPrintedJoker() {
		return "JOKER"
	}
	s, r := c.Suit(), c.Rank()
	if s > SuitJoker || r > RankKing {
		return "??"
	}
	return rankStrings[r] + suitStrings[s]
}

// SuitName returns the long suit name used in protocol payloads.
func SuitName(suit uint8) string {
	switch suit {
	case SuitSpades:
		return "spades"
	case SuitHearts:
		return "hearts"
	case SuitDiamonds:
		return "diamonds"
	case SuitClubs:
		return "clubs"
	case SuitJoker:
		return "joker"
	}
	return "?"
}

// RankName returns the short rank name used in protocol payloads.
func RankName(rank uint8) string {
	if rank <= RankKing {
		return rankStrings[rank]
	}
	return "?"
}
