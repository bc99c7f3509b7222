package engine

import "sort"

// RoundScore is one seat's outcome for a finished round.
type RoundScore struct {
	Seat     uint8
	Points   int16
	Won      bool
	Deadwood []Slot // ungrouped slots counted against the seat, if any
}

// ScoreRound computes every seat's points for a terminal round.
//
//   - The valid declarer scores 0.
//   - Seats carrying a fixed charge (invalid declare, first-drop, mid-round
//     withdrawal) pay exactly that charge, regardless of hand shape.
//   - Every other loser pays their minimum deadwood, capped at
//     Rules.HandPointsCap.
//   - A no-result round charges only accrued fixed penalties.
func ScoreRound(r *RoundState) []RoundScore {
	n := r.Rules.numPlayers()
	scores := make([]RoundScore, 0, n)
	for seat := uint8(0); seat < n; seat++ {
		s := &r.Seats[seat]
		sc := RoundScore{Seat: seat, Points: s.Penalty}

		if r.Winner == int8(seat) {
			sc.Won = true
			scores = append(scores, sc)
			continue
		}
		if s.Penalty > 0 || s.Status != SeatInRound || r.NoResult {
			scores = append(scores, sc)
			continue
		}

		_, deadwood, points := Evaluate(r, r.Hand(seat))
		if points > r.Rules.HandPointsCap {
			points = r.Rules.HandPointsCap
		}
		sc.Points = points
		sc.Deadwood = deadwood
		scores = append(scores, sc)
	}
	return scores
}

// MatchState aggregates round outcomes across a configured match.
type MatchState struct {
	Rules      Rules
	Round      uint8 // completed rounds
	Totals     [MaxPlayers]int16
	RoundsWon  [MaxPlayers]uint8
	LastRound  [MaxPlayers]int16
	Eliminated [MaxPlayers]bool
}

// NewMatch starts a fresh match ledger for the given rules.
func NewMatch(rules Rules) MatchState {
	return MatchState{Rules: rules}
}

// ApplyRound folds a finished round into the ledger and returns the round
// scores. Seats crossing the points threshold are eliminated.
func (m *MatchState) ApplyRound(r *RoundState) []RoundScore {
	scores := ScoreRound(r)
	m.Round++
	for _, sc := range scores {
		m.Totals[sc.Seat] += sc.Points
		m.LastRound[sc.Seat] = sc.Points
		if sc.Won {
			m.RoundsWon[sc.Seat]++
		}
		if m.Rules.PointsToWin > 0 && m.Totals[sc.Seat] >= m.Rules.PointsToWin {
			m.Eliminated[sc.Seat] = true
		}
	}
	return scores
}

// Complete reports whether the match is over: the configured round count has
// been played, or elimination left fewer than two seats standing.
func (m *MatchState) Complete() bool {
	if m.Rules.Rounds > 0 && m.Round >= m.Rules.Rounds {
		return true
	}
	if m.Rules.PointsToWin > 0 {
		standing := uint8(0)
		for seat := uint8(0); seat < m.Rules.numPlayers(); seat++ {
			if !m.Eliminated[seat] {
				standing++
			}
		}
		return standing <= 1
	}
	return false
}

// Standing is one row of the match scoreboard.
type Standing struct {
	Seat       uint8
	RoundsWon  uint8
	Total      int16
	LastRound  int16
	Eliminated bool
}

// Standings returns the scoreboard ordered by rounds won, ties broken by
// lowest cumulative points.
func (m *MatchState) Standings() []Standing {
	n := m.Rules.numPlayers()
	out := make([]Standing, 0, n)
	for seat := uint8(0); seat < n; seat++ {
		out = append(out, Standing{
			Seat:       seat,
			RoundsWon:  m.RoundsWon[seat],
			Total:      m.Totals[seat],
			LastRound:  m.LastRound[seat],
			Eliminated: m.Eliminated[seat],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RoundsWon != out[j].RoundsWon {
			return out[i].RoundsWon > out[j].RoundsWon
		}
		return out[i].Total < out[j].Total
	})
	return out
}

// MatchWinner returns the leading seat. Only meaningful once Complete.
func (m *MatchState) MatchWinner() uint8 {
	return m.Standings()[0].Seat
}
