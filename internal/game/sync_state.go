package game

import (
	"github.com/google/uuid"

	"github.com/9553s/casino-rummy-master/engine"
)

// ObfCard is a card as one viewer is allowed to see it. Known is false for
// face-down cards, in which case only the slot index is carried so clients
// can animate stable card backs.
type ObfCard struct {
	Slot  uint8  `json:"slot"`
	Known bool   `json:"known"`
	Rank  string `json:"rank,omitempty"`
	Suit  string `json:"suit,omitempty"`
	Value int    `json:"value,omitempty"`
	Wild  bool   `json:"wild,omitempty"`
}

// ObfSeatState is one seat as seen by a particular viewer. Hand is populated
// only for the viewer's own seat or for seats whose hand is public
// (a failed declarer, or everyone once the round ends).
type ObfSeatState struct {
	PlayerID  uuid.UUID `json:"playerId"`
	Name      string    `json:"name"`
	Seat      uint8     `json:"seat"`
	Connected bool      `json:"connected"`
	IsBot     bool      `json:"isBot"`
	Status    string    `json:"status"`
	HandSize  int       `json:"handSize"`
	Hand      []ObfCard `json:"hand,omitempty"`
	Penalty   int16     `json:"penalty"`
	Total     int16     `json:"total"`
	RoundsWon uint8     `json:"roundsWon"`
}

// ObfRoomState is the complete redacted table snapshot for one viewer.
// Sent on join, reconnect, and at the start of each round.
type ObfRoomState struct {
	RoomCode    string         `json:"roomCode"`
	Started     bool           `json:"started"`
	MatchOver   bool           `json:"matchOver"`
	Round       uint8          `json:"round"`
	CurrentSeat uint8          `json:"currentSeat"`
	Phase       string         `json:"phase"`
	TurnID      int            `json:"turnId"`
	StockSize   uint8          `json:"stockSize"`
	DiscardTop  *ObfCard       `json:"discardTop,omitempty"`
	WildCard    *ObfCard       `json:"wildCard,omitempty"`
	Seats       []ObfSeatState `json:"seats"`
}

// GetObfuscatedState builds the snapshot for forPlayer, revealing exactly
// what that player may see.
// Assumes lock is held by caller.
func (g *RummyGame) GetObfuscatedState(forPlayer uuid.UUID) ObfRoomState {
	state := ObfRoomState{
		RoomCode:  g.RoomCode,
		Started:   g.Started,
		MatchOver: g.MatchOver,
		TurnID:    g.TurnID,
	}

	if g.Started || g.Round.IsTerminal() {
		state.Round = g.Match.Round + 1
		state.CurrentSeat = g.Round.Active
		state.Phase = phaseName(g.Round.Phase)
		state.StockSize = g.Round.StockLen
		if top := g.Round.DiscardTop(); top != engine.NoSlot {
			state.DiscardTop = g.obfCardRevealed(top)
		}
		state.WildCard = g.obfCardRevealed(g.Round.WildSlot)
	}

	for _, p := range g.Players {
		seat := ObfSeatState{
			PlayerID:  p.ID,
			Name:      p.Name,
			Seat:      p.Seat,
			Connected: p.Connected,
			IsBot:     p.IsBot,
		}
		if g.Started || g.Round.IsTerminal() {
			s := &g.Round.Seats[p.Seat]
			seat.Status = seatStatusName(s.Status)
			seat.HandSize = int(s.HandLen)
			seat.Penalty = s.Penalty
			seat.Total = g.Match.Totals[p.Seat]
			seat.RoundsWon = g.Match.RoundsWon[p.Seat]
			if p.ID == forPlayer || g.handIsPublic(p.Seat) {
				seat.Hand = g.obfHand(g.Round.Hand(p.Seat))
			}
		}
		state.Seats = append(state.Seats, seat)
	}
	return state
}

// handIsPublic reports whether a seat's cards are face-up for everyone:
// after the round ends, or once the seat exposed itself with a failed
// declare and left the rotation.
func (g *RummyGame) handIsPublic(seat uint8) bool {
	if g.Round.IsTerminal() {
		return true
	}
	return g.Round.Seats[seat].Exposed
}

func (g *RummyGame) obfCardRevealed(slot engine.Slot) *ObfCard {
	c := g.Round.SlotCard(slot)
	return &ObfCard{
		Slot:  uint8(slot),
		Known: true,
		Rank:  engine.RankName(c.Rank()),
		Suit:  engine.SuitName(c.Suit()),
		Value: int(g.Round.SlotValue(slot)),
		Wild:  g.Round.IsWild(slot),
	}
}

func (g *RummyGame) obfHand(slots []engine.Slot) []ObfCard {
	out := make([]ObfCard, 0, len(slots))
	for _, s := range slots {
		out = append(out, *g.obfCardRevealed(s))
	}
	return out
}

// sendSyncState pushes the private full snapshot to one player.
// Assumes lock is held by caller.
func (g *RummyGame) sendSyncState(playerID uuid.UUID) {
	state := g.GetObfuscatedState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{
		Type:  EventPrivateSyncState,
		State: &state,
	})
}

// broadcastSyncStateToAll sends each seat its own redacted snapshot.
// Assumes lock is held by caller.
func (g *RummyGame) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected && !p.IsBot {
			g.sendSyncState(p.ID)
		}
	}
}

func phaseName(p engine.Phase) string {
	switch p {
	case engine.PhaseAwaitingDraw:
		return "awaiting_draw"
	case engine.PhaseAwaitingDiscardOrDeclare:
		return "awaiting_discard"
	default:
		return "round_complete"
	}
}

func seatStatusName(s engine.SeatStatus) string {
	switch s {
	case engine.SeatWithdrawn:
		return "withdrawn"
	case engine.SeatEliminated:
		return "eliminated"
	default:
		return "in_round"
	}
}
