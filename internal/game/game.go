// Package game orchestrates one room's match: it owns the engine state,
// turn timers, event fan-out, and the round/match lifecycle. All exported
// methods take the game mutex; the engine itself stays single-threaded.
package game

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/9553s/casino-rummy-master/engine"
	"github.com/9553s/casino-rummy-master/internal/bot"
	"github.com/9553s/casino-rummy-master/internal/cache"
	"github.com/9553s/casino-rummy-master/internal/database"
	"github.com/9553s/casino-rummy-master/internal/models"
)

// roundGap is the pause between a round ending and the next deal.
const roundGap = 6 * time.Second

// botThinkDelay paces bot actions so turns stay watchable.
const botThinkDelay = 1200 * time.Millisecond

// RummyGame is the state and logic for a single room's match.
type RummyGame struct {
	ID       uuid.UUID // unique id of this match instance
	RoomCode string

	Settings models.RoomSettings
	Rules    engine.Rules

	Players []*models.Player // seat index == engine seat index

	Round engine.RoundState // authoritative round state
	Match engine.MatchState // cross-round ledger

	// Turn management.
	TurnID       int // increments on every turn handoff; guards stale timers
	TurnDuration time.Duration
	turnTimer    *time.Timer
	gapTimer     *time.Timer // between rounds
	botTimer     *time.Timer
	actionIndex  int

	Started   bool
	MatchOver bool

	lastSeen map[uuid.UUID]time.Time
	Mu       sync.Mutex

	// Communication callbacks, set by the room layer.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnMatchEnd          OnMatchEndFunc

	// seedFn produces per-round deal seeds; swapped in tests for
	// deterministic rounds.
	seedFn func() uint64
}

// NewRummyGame creates a game for a room with normalized settings.
func NewRummyGame(roomCode string, settings models.RoomSettings) *RummyGame {
	settings = settings.Normalize()
	id, _ := uuid.NewRandom()
	g := &RummyGame{
		ID:       id,
		RoomCode: roomCode,
		Settings: settings,
		Rules:    mapSettingsToRules(settings),
		lastSeen: make(map[uuid.UUID]time.Time),
		seedFn:   func() uint64 { return uint64(time.Now().UnixNano()) },
	}
	g.TurnDuration = time.Duration(g.Rules.TurnTimerSec) * time.Second
	return g
}

// AddPlayer seats a player, or restores the connection of a known one.
// Returns the assigned seat.
func (g *RummyGame) AddPlayer(p *models.Player) (uint8, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	for _, pl := range g.Players {
		if pl.ID == p.ID {
			// Known player rejoining: HandleReconnect does the rest.
			return pl.Seat, nil
		}
	}
	if g.Started {
		if p.Conn != nil {
			p.Conn.Close(websocket.StatusPolicyViolation, "match already in progress")
		}
		return 0, ErrMatchInProgress
	}
	if len(g.Players) >= g.Settings.MaxPlayers {
		return 0, ErrGameFull
	}

	p.Seat = uint8(len(g.Players))
	p.Connected = true
	g.Players = append(g.Players, p)
	g.lastSeen[p.ID] = time.Now()
	g.logAction(p.ID, "player_add", map[string]interface{}{"seat": p.Seat, "name": p.Name, "bot": p.IsBot})

	g.fireEvent(GameEvent{
		Type: EventPlayerJoined,
		Seat: &EventSeat{ID: p.ID, Seat: p.Seat, Name: p.Name},
	})
	g.broadcastPlayerList()
	return p.Seat, nil
}

// Start deals the first round. The caller (room layer) has verified the
// requester is the host.
func (g *RummyGame) Start() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Started || g.MatchOver {
		return ErrMatchInProgress
	}
	if len(g.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	// The engine deals for Rules.Players seats; shrink to the actual roster.
	g.Rules.Players = uint8(len(g.Players))
	g.Match = engine.NewMatch(g.Rules)
	g.Started = true

	g.logAction(uuid.Nil, "game_start", map[string]interface{}{"players": len(g.Players)})
	g.fireEvent(GameEvent{
		Type:    EventGameStart,
		Payload: map[string]interface{}{"players": len(g.Players), "rounds": g.Rules.Rounds},
	})

	g.startRound()
	return nil
}

// startRound deals a fresh round, carrying eliminations forward.
// Assumes lock is held by caller.
func (g *RummyGame) startRound() {
	g.Round = engine.NewRound(g.seedFn(), g.Rules)
	for seat := uint8(0); seat < uint8(len(g.Players)); seat++ {
		if g.Match.Eliminated[seat] {
			g.Round.Seats[seat].Status = engine.SeatEliminated
		}
	}
	g.Round.Deal()

	g.logAction(uuid.Nil, "round_start", map[string]interface{}{
		"round": g.Match.Round + 1,
		"wild":  g.Round.SlotCard(g.Round.WildSlot).String(),
	})

	g.fireEvent(GameEvent{
		Type: EventRoundStart,
		Card: g.eventCardRevealed(g.Round.WildSlot),
		Payload: map[string]interface{}{
			"round":     g.Match.Round + 1,
			"stockSize": g.Round.StockLen,
		},
	})
	g.broadcastSyncStateToAll()
	g.onTurnAdvanced()
}

// HandlePlayerAction routes a decoded intent from a seated player.
func (g *RummyGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.handleActionLocked(playerID, action)
}

// handleActionLocked is the routing core; the bot driver reuses it.
// Assumes lock is held by caller.
func (g *RummyGame) handleActionLocked(playerID uuid.UUID, action models.GameAction) {
	if g.MatchOver {
		g.rejectAction(playerID, action.ActionType, "match_over")
		return
	}
	if !g.Started {
		g.rejectAction(playerID, action.ActionType, "not_started")
		return
	}
	player := g.getPlayerByID(playerID)
	if player == nil {
		return
	}
	seat := player.Seat
	g.lastSeen[playerID] = time.Now()

	switch action.ActionType {
	case "action_draw":
		g.handleDraw(player, seat, action.Payload)
	case "action_discard":
		g.handleDiscard(player, seat, action.Payload)
	case "action_declare":
		g.handleDeclare(player, seat, action.Payload)
	case "action_withdraw":
		g.handleWithdraw(player, seat)
	case "action_arrange":
		g.handleArrange(player, seat)
	default:
		log.Printf("Room %s: unknown action type %q from %s.", g.RoomCode, action.ActionType, playerID)
		g.rejectAction(playerID, action.ActionType, "unknown_action")
	}
}

// handleDraw applies a draw from the chosen pile.
// Assumes lock is held by caller.
func (g *RummyGame) handleDraw(player *models.Player, seat uint8, payload map[string]interface{}) {
	source := engine.DrawDeck
	if src, _ := payload["source"].(string); src == "discard" {
		source = engine.DrawDiscard
	}

	preStock := g.Round.StockLen
	drawn, err := g.Round.Draw(seat, source)
	if err == engine.ErrDeckEmpty {
		// Terminal: both piles exhausted, the round is void.
		g.logAction(player.ID, "round_dead", nil)
		g.finishRound()
		return
	}
	if err != nil {
		g.rejectAction(player.ID, "action_draw", rejectCode(err))
		return
	}

	if source == engine.DrawDeck && preStock == 0 {
		g.fireEvent(GameEvent{
			Type:    EventStockReshuffle,
			Payload: map[string]interface{}{"stockSize": g.Round.StockLen},
		})
	}

	// Public: slot only from the deck; full identity when taken off the
	// discard pile, which was already face-up.
	pub := GameEvent{
		Type: EventPlayerDraw,
		Seat: &EventSeat{ID: player.ID, Seat: seat},
		Card: eventCardHidden(drawn),
		Payload: map[string]interface{}{
			"source":      sourceName(source),
			"stockSize":   g.Round.StockLen,
			"discardSize": g.Round.DiscardLen,
		},
	}
	if source == engine.DrawDiscard {
		pub.Card = g.eventCardRevealed(drawn)
	}
	g.fireEvent(pub)

	g.fireEventToPlayer(player.ID, GameEvent{
		Type:    EventPrivateDraw,
		Card:    g.eventCardRevealed(drawn),
		Payload: map[string]interface{}{"source": sourceName(source)},
	})
	g.logAction(player.ID, string(EventPlayerDraw), map[string]interface{}{
		"source": sourceName(source), "slot": drawn,
	})

	g.afterAction(false)
}

// handleDiscard applies a discard, which ends the seat's turn.
// Assumes lock is held by caller.
func (g *RummyGame) handleDiscard(player *models.Player, seat uint8, payload map[string]interface{}) {
	slot, ok := payloadSlot(payload)
	if !ok {
		g.rejectAction(player.ID, "action_discard", "bad_slot")
		return
	}
	if err := g.Round.Discard(seat, slot); err != nil {
		g.rejectAction(player.ID, "action_discard", rejectCode(err))
		return
	}

	g.fireEvent(GameEvent{
		Type: EventPlayerDiscard,
		Seat: &EventSeat{ID: player.ID, Seat: seat},
		Card: g.eventCardRevealed(slot),
	})
	g.logAction(player.ID, string(EventPlayerDiscard), map[string]interface{}{"slot": slot})

	g.afterAction(true)
}

// handleDeclare applies the atomic discard-and-show action.
// Assumes lock is held by caller.
func (g *RummyGame) handleDeclare(player *models.Player, seat uint8, payload map[string]interface{}) {
	slot, ok := payloadSlot(payload)
	if !ok {
		g.rejectAction(player.ID, "action_declare", "bad_slot")
		return
	}
	res, err := g.Round.Declare(seat, slot)
	if err != nil {
		g.rejectAction(player.ID, "action_declare", rejectCode(err))
		return
	}

	ev := GameEvent{
		Type: EventPlayerDeclared,
		Seat: &EventSeat{ID: player.ID, Seat: seat},
		Card: g.eventCardRevealed(slot),
		Payload: map[string]interface{}{
			"valid": res.Valid,
			"hand":  g.eventHand(g.Round.Hand(seat)),
		},
	}
	if res.Valid {
		ev.Payload["melds"] = g.eventMelds(res.Melds)
	} else {
		ev.Payload["penalty"] = g.Round.Seats[seat].Penalty
	}
	g.fireEvent(ev)
	g.logAction(player.ID, string(EventPlayerDeclared), map[string]interface{}{
		"valid": res.Valid, "slot": slot,
	})

	g.afterAction(true)
}

// handleWithdraw drops the seat from the round at the reduced penalty.
// Assumes lock is held by caller.
func (g *RummyGame) handleWithdraw(player *models.Player, seat uint8) {
	wasActive := g.Round.Active == seat
	if err := g.Round.Withdraw(seat); err != nil {
		g.rejectAction(player.ID, "action_withdraw", rejectCode(err))
		return
	}
	g.fireEvent(GameEvent{
		Type: EventPlayerWithdrew,
		Seat: &EventSeat{ID: player.ID, Seat: seat},
		Payload: map[string]interface{}{
			"penalty": g.Round.Seats[seat].Penalty,
		},
	})
	g.logAction(player.ID, string(EventPlayerWithdrew), nil)

	// The engine only passes the turn when the withdrawing seat held it.
	g.afterAction(wasActive)
}

// handleArrange sorts the seat's stored hand order (wilds last, then suit
// and rank). No cards move between piles, so it is legal at any time.
// Assumes lock is held by caller.
func (g *RummyGame) handleArrange(player *models.Player, seat uint8) {
	if g.Round.IsTerminal() {
		g.rejectAction(player.ID, "action_arrange", "round_over")
		return
	}
	sorted := engine.SortHand(&g.Round, g.Round.Hand(seat))
	s := &g.Round.Seats[seat]
	copy(s.Hand[:s.HandLen], sorted)
	g.sendSyncState(player.ID)
}

// afterAction runs the shared post-transition path: integrity check, round
// completion, and (when the turn passed) timer rescheduling.
// Assumes lock is held by caller.
func (g *RummyGame) afterAction(turnPassed bool) {
	if !g.Round.CheckIntegrity() {
		// A transition leaked or duplicated a card. The room is unsound;
		// kill the match rather than keep dealing from broken piles.
		log.Printf("Room %s: card-count invariant violated, aborting match.", g.RoomCode)
		g.abortMatch("integrity_violation")
		return
	}
	if g.Round.IsTerminal() {
		g.finishRound()
		return
	}
	if turnPassed {
		g.onTurnAdvanced()
	}
}

// onTurnAdvanced announces the active seat and arms the turn clock.
// Assumes lock is held by caller.
func (g *RummyGame) onTurnAdvanced() {
	g.TurnID++
	if g.MatchOver || g.Round.IsTerminal() {
		return
	}

	// A table with no human connection left can never finish: the forced
	// play never declares and the discard reshuffle refills the stock
	// forever. Forfeit the match instead of grinding the rotation.
	if g.connectedHumans() == 0 {
		g.abortMatch("abandoned")
		return
	}

	active := g.Round.Active
	activePlayer := g.seatPlayer(active)
	g.fireEvent(GameEvent{
		Type: EventGamePlayerTurn,
		Seat: g.eventSeatFor(active),
		Payload: map[string]interface{}{
			"turn":  g.TurnID,
			"phase": "awaiting_draw",
		},
	})
	g.logAction(uuid.Nil, string(EventGamePlayerTurn), map[string]interface{}{"turn": g.TurnID, "seat": active})

	// A dead seat cannot act; run the forced play rather than stall the
	// table for a full timer cycle.
	if activePlayer != nil && !activePlayer.Connected && !activePlayer.IsBot {
		g.handleTimeout(active)
		return
	}

	g.scheduleTurnTimer()
	g.scheduleBotMove()
}

// scheduleTurnTimer arms the per-turn deadline. The TurnID captured at
// scheduling time invalidates the callback if the turn has already moved.
// Assumes lock is held by caller.
func (g *RummyGame) scheduleTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.TurnDuration <= 0 || g.MatchOver || !g.Started {
		return
	}

	expectedTurn := g.TurnID
	seat := g.Round.Active
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.MatchOver || !g.Started || g.TurnID != expectedTurn || g.Round.IsTerminal() {
			return
		}
		log.Printf("Room %s: turn %d deadline hit for seat %d.", g.RoomCode, expectedTurn, seat)
		g.handleTimeout(seat)
	})
}

// handleTimeout force-plays the active seat: draw from the deck if needed,
// then discard the first card in hand.
// Assumes lock is held by caller.
func (g *RummyGame) handleTimeout(seat uint8) {
	g.logAction(uuid.Nil, "player_timeout", map[string]interface{}{"seat": seat, "turn": g.TurnID})

	drew := g.Round.Phase == engine.PhaseAwaitingDraw
	preStock := g.Round.StockLen
	drawn, discarded, err := g.Round.ForcePlay(seat)
	if err == engine.ErrDeckEmpty {
		g.finishRound()
		return
	}
	if err != nil {
		log.Printf("Room %s: forced play for seat %d failed: %v", g.RoomCode, seat, err)
		return
	}

	if drew && preStock == 0 {
		g.fireEvent(GameEvent{
			Type:    EventStockReshuffle,
			Payload: map[string]interface{}{"stockSize": g.Round.StockLen},
		})
	}
	if drawn != engine.NoSlot {
		g.fireEvent(GameEvent{
			Type: EventPlayerDraw,
			Seat: g.eventSeatFor(seat),
			Card: eventCardHidden(drawn),
			Payload: map[string]interface{}{
				"source": "deck",
				"forced": true,
			},
		})
	}
	g.fireEvent(GameEvent{
		Type:    EventPlayerDiscard,
		Seat:    g.eventSeatFor(seat),
		Card:    g.eventCardRevealed(discarded),
		Payload: map[string]interface{}{"forced": true},
	})

	g.afterAction(true)
}

// finishRound folds the finished round into the match ledger and either
// deals the next round after a pause or ends the match.
// Assumes lock is held by caller.
func (g *RummyGame) finishRound() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.botTimer != nil {
		g.botTimer.Stop()
		g.botTimer = nil
	}

	scores := g.Match.ApplyRound(&g.Round)

	scorePayload := make([]map[string]interface{}, 0, len(scores))
	for _, sc := range scores {
		entry := map[string]interface{}{
			"seat":   sc.Seat,
			"points": sc.Points,
			"won":    sc.Won,
		}
		if p := g.seatPlayer(sc.Seat); p != nil {
			entry["playerId"] = p.ID
			entry["name"] = p.Name
		}
		// Hands come down at round end; expose everyone still holding cards.
		if g.Round.Seats[sc.Seat].HandLen > 0 {
			entry["hand"] = g.eventHand(g.Round.Hand(sc.Seat))
		}
		scorePayload = append(scorePayload, entry)
	}

	g.fireEvent(GameEvent{
		Type: EventRoundEnd,
		Payload: map[string]interface{}{
			"round":      g.Match.Round,
			"noResult":   g.Round.NoResult,
			"winnerSeat": g.Round.Winner,
			"scores":     scorePayload,
			"scoreboard": g.scoreboard(),
		},
	})
	g.logAction(uuid.Nil, string(EventRoundEnd), map[string]interface{}{
		"round": g.Match.Round, "winner": g.Round.Winner,
	})

	if g.Match.Complete() {
		g.endMatch()
		return
	}

	g.gapTimer = time.AfterFunc(roundGap, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.MatchOver || !g.Started {
			return
		}
		g.startRound()
	})
}

// endMatch publishes final standings, persists the result, and retires the
// game.
// Assumes lock is held by caller.
func (g *RummyGame) endMatch() {
	if g.MatchOver {
		return
	}
	g.MatchOver = true
	g.Started = false
	g.stopTimers()

	standings := g.scoreboard()
	winnerSeat := g.Match.MatchWinner()
	var winnerID uuid.UUID
	if p := g.seatPlayer(winnerSeat); p != nil {
		winnerID = p.ID
	}

	totals := make(map[uuid.UUID]int)
	for _, p := range g.Players {
		totals[p.ID] = int(g.Match.Totals[p.Seat])
	}

	g.fireEvent(GameEvent{
		Type: EventMatchEnd,
		Payload: map[string]interface{}{
			"winnerSeat": winnerSeat,
			"winnerId":   winnerID,
			"rounds":     g.Match.Round,
			"standings":  standings,
		},
	})
	g.logAction(uuid.Nil, string(EventMatchEnd), map[string]interface{}{"winner": winnerSeat})

	g.persistMatchResult(winnerID, standings)

	if g.OnMatchEnd != nil {
		g.OnMatchEnd(g.RoomCode, winnerID, totals)
	}
	log.Printf("Room %s: match over, winner seat %d.", g.RoomCode, winnerSeat)
}

// abortMatch retires the game without a winner after an internal fault.
// Assumes lock is held by caller.
func (g *RummyGame) abortMatch(reason string) {
	if g.MatchOver {
		return
	}
	g.MatchOver = true
	g.Started = false
	g.stopTimers()

	g.fireEvent(GameEvent{
		Type:    EventMatchEnd,
		Payload: map[string]interface{}{"aborted": true, "reason": reason},
	})
	g.logAction(uuid.Nil, "match_abort", map[string]interface{}{"reason": reason})

	if g.OnMatchEnd != nil {
		g.OnMatchEnd(g.RoomCode, uuid.Nil, nil)
	}
}

func (g *RummyGame) stopTimers() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.gapTimer != nil {
		g.gapTimer.Stop()
		g.gapTimer = nil
	}
	if g.botTimer != nil {
		g.botTimer.Stop()
		g.botTimer = nil
	}
}

// HandleDisconnect marks a player disconnected. If it was their turn the
// forced-play path engages immediately so the table never waits on a dead
// socket.
func (g *RummyGame) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player := g.getPlayerByID(playerID)
	if player == nil || !player.Connected {
		return
	}
	player.Connected = false
	player.Conn = nil
	g.logAction(playerID, "player_disconnect", nil)

	g.fireEvent(GameEvent{
		Type:    EventPlayerLeft,
		Seat:    &EventSeat{ID: playerID, Seat: player.Seat, Name: player.Name},
		Payload: map[string]interface{}{"reason": "disconnected"},
	})

	if !g.Started || g.MatchOver || g.Round.IsTerminal() {
		return
	}
	if g.connectedHumans() == 0 {
		g.abortMatch("abandoned")
		return
	}
	if g.Round.Active == player.Seat {
		g.handleTimeout(player.Seat)
	}
}

// connectedHumans counts seats with a live human connection.
// Assumes lock is held by caller.
func (g *RummyGame) connectedHumans() int {
	n := 0
	for _, p := range g.Players {
		if p.Connected && !p.IsBot {
			n++
		}
	}
	return n
}

// HandleReconnect restores a seat's connection and sends the full state.
func (g *RummyGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player := g.getPlayerByID(playerID)
	if player == nil {
		if conn != nil {
			conn.Close(websocket.StatusPolicyViolation, "seat not found")
		}
		return ErrSeatNotFound
	}
	player.Connected = true
	player.Conn = conn
	g.lastSeen[playerID] = time.Now()
	g.logAction(playerID, "player_reconnect", nil)

	g.fireEvent(GameEvent{
		Type:    EventPlayerJoined,
		Seat:    &EventSeat{ID: playerID, Seat: player.Seat, Name: player.Name},
		Payload: map[string]interface{}{"reconnect": true},
	})
	g.sendSyncState(playerID)
	return nil
}

// LeaveRoom handles a deliberate exit: withdraw from the running round,
// then free the seat pre-game or mark it gone mid-match.
func (g *RummyGame) LeaveRoom(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	player := g.getPlayerByID(playerID)
	if player == nil {
		return
	}

	if g.Started && !g.Round.IsTerminal() {
		if g.Round.Seats[player.Seat].Status == engine.SeatInRound {
			g.handleWithdraw(player, player.Seat)
		}
	}
	player.Connected = false
	player.Conn = nil

	if !g.Started {
		// Pre-game: compact the roster so seats stay contiguous.
		for i, pl := range g.Players {
			if pl.ID == playerID {
				g.Players = append(g.Players[:i], g.Players[i+1:]...)
				break
			}
		}
		for i, pl := range g.Players {
			pl.Seat = uint8(i)
		}
	}

	g.fireEvent(GameEvent{
		Type:    EventPlayerLeft,
		Seat:    &EventSeat{ID: playerID, Seat: player.Seat, Name: player.Name},
		Payload: map[string]interface{}{"reason": "left"},
	})
	g.broadcastPlayerList()
	g.logAction(playerID, string(EventPlayerLeft), nil)
}

// Empty reports whether no human connection remains.
func (g *RummyGame) Empty() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.connectedHumans() == 0
}

// ---------------------------------------------------------------------------
// Bot driver
// ---------------------------------------------------------------------------

// scheduleBotMove arms a delayed bot action when the active seat is a bot.
// Assumes lock is held by caller.
func (g *RummyGame) scheduleBotMove() {
	active := g.Round.Active
	player := g.seatPlayer(active)
	if player == nil || !player.IsBot {
		return
	}
	if g.botTimer != nil {
		g.botTimer.Stop()
	}

	expectedTurn := g.TurnID
	g.botTimer = time.AfterFunc(botThinkDelay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.MatchOver || !g.Started || g.TurnID != expectedTurn || g.Round.IsTerminal() {
			return
		}
		g.runBotTurn(player)
	})
}

// runBotTurn lets the bot act through the same intent path as a human,
// seeing only its own hand and the public piles.
// Assumes lock is held by caller.
func (g *RummyGame) runBotTurn(player *models.Player) {
	seat := player.Seat
	view := g.botView(seat)
	decision := bot.Decide(view)

	switch decision.Action {
	case bot.ActDraw:
		payload := map[string]interface{}{"source": sourceName(decision.Source)}
		g.handleActionLocked(player.ID, models.GameAction{ActionType: "action_draw", Payload: payload})
		// Same turn continues: decide the discard half immediately.
		if !g.MatchOver && g.Started && !g.Round.IsTerminal() && g.Round.Active == seat {
			g.runBotTurn(player)
		}
	case bot.ActDiscard:
		g.handleActionLocked(player.ID, models.GameAction{
			ActionType: "action_discard",
			Payload:    map[string]interface{}{"slot": float64(decision.Slot)},
		})
	case bot.ActDeclare:
		g.handleActionLocked(player.ID, models.GameAction{
			ActionType: "action_declare",
			Payload:    map[string]interface{}{"slot": float64(decision.Slot)},
		})
	}
}

// botView assembles the hand-isolated table view for the bot at seat.
// Assumes lock is held by caller.
func (g *RummyGame) botView(seat uint8) bot.View {
	r := &g.Round
	return bot.View{
		Phase:      r.Phase,
		Hand:       r.Hand(seat),
		DiscardTop: r.DiscardTop(),
		Card:       r.SlotCard,
		Wild:       r.IsWild,
		Value:      r.SlotValue,
		CanDeclare: func(discard engine.Slot) bool {
			hand := r.Hand(seat)
			kept := hand[:0:0]
			for _, s := range hand {
				if s != discard {
					kept = append(kept, s)
				}
			}
			if len(kept) != engine.HandSize {
				return false
			}
			return engine.ValidateHand(r, kept).Valid
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func sourceName(src engine.DrawSource) string {
	if src == engine.DrawDiscard {
		return "discard"
	}
	return "deck"
}

func (g *RummyGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *RummyGame) seatPlayer(seat uint8) *models.Player {
	for _, p := range g.Players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

func (g *RummyGame) eventSeatFor(seat uint8) *EventSeat {
	if p := g.seatPlayer(seat); p != nil {
		return &EventSeat{ID: p.ID, Seat: seat, Name: p.Name}
	}
	return &EventSeat{Seat: seat}
}

// scoreboard renders the cross-round standings, rounds won first and
// lowest cumulative points breaking ties.
// Assumes lock is held by caller.
func (g *RummyGame) scoreboard() []map[string]interface{} {
	standings := g.Match.Standings()
	out := make([]map[string]interface{}, 0, len(standings))
	for _, st := range standings {
		if int(st.Seat) >= len(g.Players) {
			continue
		}
		entry := map[string]interface{}{
			"seat":       st.Seat,
			"roundsWon":  st.RoundsWon,
			"total":      st.Total,
			"lastRound":  st.LastRound,
			"eliminated": st.Eliminated,
		}
		if p := g.seatPlayer(st.Seat); p != nil {
			entry["playerId"] = p.ID
			entry["name"] = p.Name
		}
		out = append(out, entry)
	}
	return out
}

// rejectAction refuses an intent without mutating state.
// Assumes lock is held by caller.
func (g *RummyGame) rejectAction(playerID uuid.UUID, action, code string) {
	g.fireEventToPlayer(playerID, GameEvent{
		Type: EventActionRejected,
		Payload: map[string]interface{}{
			"action": action,
			"code":   code,
		},
	})
	g.logAction(playerID, string(EventActionRejected), map[string]interface{}{
		"action": action, "code": code,
	})
}

func (g *RummyGame) broadcastPlayerList() {
	seats := make([]EventSeat, len(g.Players))
	for i, p := range g.Players {
		seats[i] = EventSeat{ID: p.ID, Seat: p.Seat, Name: p.Name}
	}
	g.fireEvent(GameEvent{
		Type:    EventPlayerList,
		Payload: map[string]interface{}{"players": seats, "maxPlayers": g.Settings.MaxPlayers},
	})
}

// fireEvent broadcasts to all connected players via the room callback.
// Assumes lock is held by caller.
func (g *RummyGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		log.Printf("Warning: Room %s: BroadcastFn is nil, dropping event %s.", g.RoomCode, ev.Type)
	}
}

// fireEventToPlayer sends a private event to one player.
// Assumes lock is held by caller.
func (g *RummyGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		log.Printf("Warning: Room %s: BroadcastToPlayerFn is nil, dropping event %s.", g.RoomCode, ev.Type)
		return
	}
	target := g.getPlayerByID(playerID)
	if target != nil && (target.Connected || target.IsBot) {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// logAction queues an action record for the historian. Fire-and-forget.
// Assumes lock is held by caller.
func (g *RummyGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		RoomCode:      g.RoomCode,
		ActionIndex:   g.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			return
		}
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Error: Room %s: failed publishing action %d (%s): %v", g.RoomCode, rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}

// persistMatchResult stores the final standings when a database is wired.
// Assumes lock is held by caller.
func (g *RummyGame) persistMatchResult(winnerID uuid.UUID, standings []map[string]interface{}) {
	if database.DB == nil {
		return
	}
	raw, err := json.Marshal(standings)
	if err != nil {
		log.Printf("Error: Room %s: cannot marshal standings: %v", g.RoomCode, err)
		return
	}
	res := database.MatchResult{
		RoomCode:   g.RoomCode,
		WinnerID:   winnerID,
		RoundCount: int(g.Match.Round),
		Standings:  raw,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreMatchResult(ctx, res); err != nil {
			log.Printf("Error: Room %s: failed storing match result: %v", g.RoomCode, err)
		}
		_ = cache.PurgeGameActions(ctx, g.RoomCode)
	}()
}
