package room

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9553s/casino-rummy-master/internal/game"
	"github.com/9553s/casino-rummy-master/internal/models"
)

// fakeSession records everything sent to one client.
type fakeSession struct {
	mu     sync.Mutex
	frames [][]byte
	kicked bool
	full   bool // simulate a wedged client
}

func (f *fakeSession) Send(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.frames = append(f.frames, data)
	return true
}

func (f *fakeSession) Kick(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = true
}

func (f *fakeSession) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, frame := range f.frames {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &ev); err == nil {
			types = append(types, ev.Type)
		}
	}
	return types
}

func (f *fakeSession) hasEvent(eventType game.GameEventType) bool {
	for _, t := range f.eventTypes() {
		if t == string(eventType) {
			return true
		}
	}
	return false
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewRegistry(log)
}

func TestCreateRoomAllocatesUniqueCodes(t *testing.T) {
	reg := testRegistry(t)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		r, err := reg.CreateRoom(models.RoomSettings{})
		require.NoError(t, err)
		require.Len(t, r.Code, codeLength)
		assert.False(t, seen[r.Code], "duplicate room code %s", r.Code)
		seen[r.Code] = true
	}
	assert.Equal(t, 20, reg.Count())
}

func TestGetRoomUnknownCode(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.GetRoom("ZZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinDeliversRosterEvents(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	s1 := &fakeSession{}
	p1 := &models.Player{ID: uuid.New(), Name: "alice"}
	seat, err := r.Join(p1, s1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), seat)
	assert.Equal(t, p1.ID, r.HostID())

	s2 := &fakeSession{}
	p2 := &models.Player{ID: uuid.New(), Name: "bob"}
	_, err = r.Join(p2, s2)
	require.NoError(t, err)

	// Both sessions saw bob arrive; the host did not change.
	assert.True(t, s1.hasEvent(game.EventPlayerJoined))
	assert.True(t, s2.hasEvent(game.EventPlayerJoined))
	assert.True(t, s2.hasEvent(game.EventPlayerList))
	assert.Equal(t, p1.ID, r.HostID())
}

func TestOnlyHostStarts(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	p1 := &models.Player{ID: uuid.New(), Name: "alice"}
	p2 := &models.Player{ID: uuid.New(), Name: "bob"}
	_, err = r.Join(p1, &fakeSession{})
	require.NoError(t, err)
	_, err = r.Join(p2, &fakeSession{})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Start(p2.ID), ErrNotHost)
	require.NoError(t, r.Start(p1.ID))
	assert.ErrorIs(t, r.Start(p1.ID), game.ErrMatchInProgress)
}

func TestCreateRoomSeatsBots(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{MaxPlayers: 2, BotSeats: 1})
	require.NoError(t, err)

	s := &fakeSession{}
	human := &models.Player{ID: uuid.New(), Name: "alice"}
	_, err = r.Join(human, s)
	require.NoError(t, err)

	// The bot holds a seat but never the host slot.
	assert.Equal(t, human.ID, r.HostID())
	require.NoError(t, r.Start(human.ID))
}

func TestEnqueueShedsLoadWhenFull(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	// Wedge the worker so the queue backs up.
	block := make(chan struct{})
	require.NoError(t, r.Enqueue(func() { <-block }))

	var queued int
	for i := 0; i < queueDepth+10; i++ {
		if err := r.Enqueue(func() {}); err == nil {
			queued++
		} else {
			assert.ErrorIs(t, err, ErrQueueFull)
		}
	}
	assert.LessOrEqual(t, queued, queueDepth)
	close(block)
}

func TestEnqueueAfterRemove(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	reg.Remove(r.Code)
	assert.ErrorIs(t, r.Enqueue(func() {}), ErrRoomClosed)
	_, err = reg.GetRoom(r.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// Idempotent.
	reg.Remove(r.Code)
}

func TestQueueSerializesActions(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	const n = 50
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		for {
			err := r.Enqueue(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				wg.Done()
			})
			if err == nil {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v, "actions ran out of submission order")
	}
}

func TestSlowSessionIsDropped(t *testing.T) {
	reg := testRegistry(t)
	r, err := reg.CreateRoom(models.RoomSettings{})
	require.NoError(t, err)

	wedged := &fakeSession{full: true}
	p1 := &models.Player{ID: uuid.New(), Name: "alice"}
	_, err = r.Join(p1, wedged)
	require.NoError(t, err)

	healthy := &fakeSession{}
	p2 := &models.Player{ID: uuid.New(), Name: "bob"}
	_, err = r.Join(p2, healthy)
	require.NoError(t, err)

	// The wedged session was evicted on the first failed send; the healthy
	// one keeps receiving.
	assert.True(t, healthy.hasEvent(game.EventPlayerJoined))
	r.Game.Mu.Lock()
	_, stillThere := r.sessions[p1.ID]
	r.Game.Mu.Unlock()
	assert.False(t, stillThere)
}
