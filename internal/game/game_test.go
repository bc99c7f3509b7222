package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9553s/casino-rummy-master/engine"
	"github.com/9553s/casino-rummy-master/internal/models"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []GameEvent{}
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) findPlayerEventByType(playerID uuid.UUID, eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// setupTestGame seats numPlayers humans in a fresh room with the turn timer
// disabled and a fixed deal seed, so rounds are reproducible.
func setupTestGame(t *testing.T, numPlayers int, settings models.RoomSettings) (*RummyGame, []*models.Player, *mockBroadcaster) {
	t.Helper()

	if settings.MaxPlayers < numPlayers {
		settings.MaxPlayers = numPlayers
	}
	settings.TimePerTurn = 0 // tests drive turns themselves

	g := NewRummyGame("TEST01", settings)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	g.seedFn = func() uint64 { return 42 }

	players := make([]*models.Player, 0, numPlayers)
	for i := 0; i < numPlayers; i++ {
		p := &models.Player{ID: uuid.New(), Name: "p" + string(rune('A'+i))}
		seat, err := g.AddPlayer(p)
		require.NoError(t, err)
		require.Equal(t, uint8(i), seat)
		players = append(players, p)
	}
	return g, players, mb
}

// activeIdx returns the roster index of the seat currently on turn.
func activeIdx(g *RummyGame) int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return int(g.Round.Active)
}

func TestAddPlayerSeatsAndAnnounces(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})

	ev := mb.findEventByType(EventPlayerJoined)
	require.NotNil(t, ev)
	assert.Equal(t, players[1].ID, ev.Seat.ID)

	list := mb.findEventByType(EventPlayerList)
	require.NotNil(t, list)

	// Third seat into a 2-player room is refused.
	_, err := g.AddPlayer(&models.Player{ID: uuid.New(), Name: "late"})
	assert.ErrorIs(t, err, ErrGameFull)
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	g := NewRummyGame("TEST01", models.RoomSettings{})
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	_, err := g.AddPlayer(&models.Player{ID: uuid.New(), Name: "solo"})
	require.NoError(t, err)
	assert.ErrorIs(t, g.Start(), ErrNotEnoughPlayers)
}

func TestStartDealsRoundAndAnnouncesTurn(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	g.Mu.Lock()
	for seat := 0; seat < 2; seat++ {
		assert.Equal(t, engine.HandSize, int(g.Round.Seats[seat].HandLen))
	}
	assert.True(t, g.Round.CheckIntegrity())
	g.Mu.Unlock()

	start := mb.findEventByType(EventRoundStart)
	require.NotNil(t, start)
	require.NotNil(t, start.Card, "round start reveals the wild joker")
	assert.NotEmpty(t, start.Card.Rank)

	turn := mb.findEventByType(EventGamePlayerTurn)
	require.NotNil(t, turn)

	// Each seat got its private snapshot with only its own hand revealed.
	for i, p := range players {
		snap := mb.findPlayerEventByType(p.ID, EventPrivateSyncState)
		require.NotNil(t, snap, "player %d snapshot", i)
		require.NotNil(t, snap.State)
		for _, seat := range snap.State.Seats {
			if seat.PlayerID == p.ID {
				assert.Len(t, seat.Hand, engine.HandSize)
			} else {
				assert.Empty(t, seat.Hand)
				assert.Equal(t, engine.HandSize, seat.HandSize)
			}
		}
	}
}

func TestDrawThenDiscardPassesTurn(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	actor := players[activeIdx(g)]
	mb.clear()

	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})

	pub := mb.findEventByType(EventPlayerDraw)
	require.NotNil(t, pub)
	assert.Empty(t, pub.Card.Rank, "deck draws stay hidden publicly")

	priv := mb.findPlayerEventByType(actor.ID, EventPrivateDraw)
	require.NotNil(t, priv)
	assert.NotEmpty(t, priv.Card.Rank, "drawer learns the card")

	g.Mu.Lock()
	drawnSlot := g.Round.Seats[actor.Seat].Hand[engine.HandSize] // 14th card
	g.Mu.Unlock()

	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_discard",
		Payload:    map[string]interface{}{"slot": float64(drawnSlot)},
	})

	disc := mb.findEventByType(EventPlayerDiscard)
	require.NotNil(t, disc)
	assert.NotEmpty(t, disc.Card.Rank, "discards are public")

	turn := mb.findEventByType(EventGamePlayerTurn)
	require.NotNil(t, turn)
	assert.NotEqual(t, actor.Seat, turn.Seat.Seat, "turn passed to the other seat")
}

func TestOutOfTurnDrawRejected(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	idle := players[1-activeIdx(g)]
	g.HandlePlayerAction(idle.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})

	rej := mb.findPlayerEventByType(idle.ID, EventActionRejected)
	require.NotNil(t, rej)
	assert.Equal(t, "not_your_turn", rej.Payload["code"])

	g.Mu.Lock()
	assert.Equal(t, engine.HandSize, int(g.Round.Seats[idle.Seat].HandLen), "no state change on rejection")
	g.Mu.Unlock()
}

func TestDiscardBeforeDrawRejected(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	actor := players[activeIdx(g)]
	g.Mu.Lock()
	slot := g.Round.Seats[actor.Seat].Hand[0]
	g.Mu.Unlock()

	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_discard",
		Payload:    map[string]interface{}{"slot": float64(slot)},
	})

	rej := mb.findPlayerEventByType(actor.ID, EventActionRejected)
	require.NotNil(t, rej)
	assert.Equal(t, "wrong_phase", rej.Payload["code"])
}

func TestInvalidDeclareChargesAndContinues(t *testing.T) {
	settings := models.RoomSettings{InvalidDeclarePenalty: 80}
	g, players, mb := setupTestGame(t, 2, settings)
	require.NoError(t, g.Start())

	actor := players[activeIdx(g)]
	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})

	// A random dealt hand is essentially never a winning one.
	g.Mu.Lock()
	slot := g.Round.Seats[actor.Seat].Hand[0]
	g.Mu.Unlock()

	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_declare",
		Payload:    map[string]interface{}{"slot": float64(slot)},
	})

	decl := mb.findEventByType(EventPlayerDeclared)
	require.NotNil(t, decl)
	assert.Equal(t, false, decl.Payload["valid"])
	assert.Equal(t, int16(80), decl.Payload["penalty"])
	require.NotNil(t, decl.Payload["hand"], "failed declarer's hand is exposed")

	g.Mu.Lock()
	assert.False(t, g.Round.IsTerminal(), "round continues after a failed declare")
	assert.True(t, g.Round.Seats[actor.Seat].Exposed)
	g.Mu.Unlock()
}

func TestWithdrawEndsHeadsUpRound(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{Rounds: 5})
	require.NoError(t, g.Start())

	quitter := players[activeIdx(g)]
	g.HandlePlayerAction(quitter.ID, models.GameAction{ActionType: "action_withdraw"})

	wd := mb.findEventByType(EventPlayerWithdrew)
	require.NotNil(t, wd)
	assert.Equal(t, int16(20), wd.Payload["penalty"], "first-drop charge before any pickup")

	// Heads-up, the survivor wins the round outright.
	end := mb.findEventByType(EventRoundEnd)
	require.NotNil(t, end)
	assert.Equal(t, int8(1-int(quitter.Seat)), end.Payload["winnerSeat"])
	assert.Nil(t, mb.findEventByType(EventMatchEnd), "more rounds remain")
}

func TestDisconnectedActiveSeatIsForcePlayed(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	actor := players[activeIdx(g)]
	mb.clear()
	g.HandleDisconnect(actor.ID)

	left := mb.findEventByType(EventPlayerLeft)
	require.NotNil(t, left)

	disc := mb.findEventByType(EventPlayerDiscard)
	require.NotNil(t, disc, "forced play discarded for the dead seat")
	assert.Equal(t, true, disc.Payload["forced"])

	turn := mb.findEventByType(EventGamePlayerTurn)
	require.NotNil(t, turn)
	assert.NotEqual(t, actor.Seat, turn.Seat.Seat)
}

func TestAllHumansDisconnectedForfeitsMatch(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	var abortedWinner uuid.UUID
	done := make(chan struct{})
	g.OnMatchEnd = func(roomCode string, winner uuid.UUID, totals map[uuid.UUID]int) {
		abortedWinner = winner
		close(done)
	}

	idle := players[1-activeIdx(g)]
	actor := players[activeIdx(g)]
	g.HandleDisconnect(idle.ID)

	// The last human leaving must end the match, not spin the forced-play
	// rotation forever while holding the game lock.
	returned := make(chan struct{})
	go func() {
		g.HandleDisconnect(actor.ID)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(3 * time.Second):
		t.Fatal("HandleDisconnect did not return with every seat disconnected")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("match end callback never fired")
	}
	assert.Equal(t, uuid.Nil, abortedWinner, "an abandoned match has no winner")

	end := mb.findEventByType(EventMatchEnd)
	require.NotNil(t, end)
	assert.Equal(t, true, end.Payload["aborted"])
	assert.Equal(t, "abandoned", end.Payload["reason"])

	// The lock is free again: the reaper can see the room is dead.
	assert.True(t, g.Empty())
	g.Mu.Lock()
	assert.True(t, g.MatchOver)
	g.Mu.Unlock()
}

func TestDisconnectedIdleSeatAbandonsOnTurnHandoff(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	actor := players[activeIdx(g)]
	idle := players[1-activeIdx(g)]
	g.HandleDisconnect(idle.ID)

	// Actor is still connected, so play continues; the moment their discard
	// hands the turn to a table with no humans left, the match forfeits
	// instead of force-playing in a loop.
	g.HandlePlayerAction(actor.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})
	g.HandleDisconnect(actor.ID)

	end := mb.findEventByType(EventMatchEnd)
	require.NotNil(t, end)
	assert.Equal(t, true, end.Payload["aborted"])
}

func TestReconnectRestoresSnapshot(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	p := players[0]
	g.HandleDisconnect(p.ID)
	mb.clear()

	require.NoError(t, g.HandleReconnect(p.ID, nil))

	snap := mb.findPlayerEventByType(p.ID, EventPrivateSyncState)
	require.NotNil(t, snap)
	require.NotNil(t, snap.State)
	assert.True(t, snap.State.Started)

	assert.ErrorIs(t, g.HandleReconnect(uuid.New(), nil), ErrSeatNotFound)
}

func TestTurnTimerForcesPlay(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	g.Mu.Lock()
	g.TurnDuration = 30 * time.Millisecond
	g.scheduleTurnTimer()
	g.Mu.Unlock()

	firstSeat := uint8(activeIdx(g))
	require.Eventually(t, func() bool {
		ev := mb.findEventByType(EventPlayerDiscard)
		return ev != nil && ev.Payload["forced"] == true
	}, time.Second, 5*time.Millisecond, "deadline should auto-play the turn")

	assert.NotEqual(t, firstSeat, uint8(activeIdx(g)), "turn moved on")
}

func TestMatchEndAfterFinalRound(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, models.RoomSettings{Rounds: 1})
	require.NoError(t, g.Start())

	var gotWinner uuid.UUID
	done := make(chan struct{})
	g.OnMatchEnd = func(roomCode string, winner uuid.UUID, totals map[uuid.UUID]int) {
		gotWinner = winner
		close(done)
	}

	// Single-round match: a withdrawal finishes the round and the match.
	quitter := players[activeIdx(g)]
	g.HandlePlayerAction(quitter.ID, models.GameAction{ActionType: "action_withdraw"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("match end callback never fired")
	}

	end := mb.findEventByType(EventMatchEnd)
	require.NotNil(t, end)
	winner := players[1-int(quitter.Seat)]
	assert.Equal(t, winner.ID, gotWinner)
	assert.Equal(t, winner.ID, end.Payload["winnerId"])

	g.Mu.Lock()
	assert.True(t, g.MatchOver)
	g.Mu.Unlock()

	// No further actions accepted.
	g.HandlePlayerAction(winner.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})
	rej := mb.findPlayerEventByType(winner.ID, EventActionRejected)
	require.NotNil(t, rej)
	assert.Equal(t, "match_over", rej.Payload["code"])
}

func TestBotPlaysItsTurn(t *testing.T) {
	settings := models.RoomSettings{BotSeats: 1}
	g, players, mb := setupTestGame(t, 2, settings)
	require.NoError(t, g.Start())

	// Flag the non-active seat as a bot, then hand it the turn.
	human := players[activeIdx(g)]
	botPlayer := players[1-activeIdx(g)]
	g.Mu.Lock()
	botPlayer.IsBot = true
	g.Mu.Unlock()

	g.HandlePlayerAction(human.ID, models.GameAction{
		ActionType: "action_draw",
		Payload:    map[string]interface{}{"source": "deck"},
	})
	g.Mu.Lock()
	slot := g.Round.Seats[human.Seat].Hand[engine.HandSize]
	g.Mu.Unlock()
	mb.clear()
	g.HandlePlayerAction(human.ID, models.GameAction{
		ActionType: "action_discard",
		Payload:    map[string]interface{}{"slot": float64(slot)},
	})

	require.Eventually(t, func() bool {
		ev := mb.findEventByType(EventPlayerDiscard)
		return ev != nil && ev.Seat != nil && ev.Seat.ID == botPlayer.ID
	}, 5*time.Second, 20*time.Millisecond, "bot should draw and discard on its own")
}

func TestArrangeSortsOwnHandOnly(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, models.RoomSettings{})
	require.NoError(t, g.Start())

	p := players[0]
	g.Mu.Lock()
	before := append([]engine.Slot(nil), g.Round.Hand(p.Seat)...)
	g.Mu.Unlock()

	g.HandlePlayerAction(p.ID, models.GameAction{ActionType: "action_arrange"})

	g.Mu.Lock()
	after := append([]engine.Slot(nil), g.Round.Hand(p.Seat)...)
	stock := g.Round.StockLen
	g.Mu.Unlock()

	assert.ElementsMatch(t, before, after, "arrange permutes, never adds or removes")
	assert.Equal(t, engine.HandSize, len(after))

	// Sorted order is idempotent.
	g.HandlePlayerAction(p.ID, models.GameAction{ActionType: "action_arrange"})
	g.Mu.Lock()
	again := append([]engine.Slot(nil), g.Round.Hand(p.Seat)...)
	assert.Equal(t, after, again)
	assert.Equal(t, stock, g.Round.StockLen)
	g.Mu.Unlock()
}
