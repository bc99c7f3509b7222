// Package room manages the lobby layer: room lifecycle, seat sessions, and
// the per-room serialized action queue between the sockets and the game.
package room

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/9553s/casino-rummy-master/internal/game"
	"github.com/9553s/casino-rummy-master/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room: no such room")
	ErrQueueFull    = errors.New("room: action queue full")
	ErrNotHost      = errors.New("room: only the host can start the match")
	ErrRoomClosed   = errors.New("room: room is closed")
)

// queueDepth bounds how many pending actions a room buffers before the
// transport starts shedding load instead of growing without bound.
const queueDepth = 64

// Session is one player's outbound channel, implemented by the websocket
// layer. Send must not block; it reports false when the client is too far
// behind and has been dropped.
type Session interface {
	Send(data []byte) bool
	Kick(reason string)
}

// Room binds one game instance to its connected sessions and serializes
// every mutation through a single worker goroutine, so the game only ever
// sees one action at a time regardless of how many sockets feed it.
type Room struct {
	Code      string
	Game      *game.RummyGame
	CreatedAt time.Time

	queue    chan func()
	shutdown chan struct{}
	closed   bool

	sessions map[uuid.UUID]Session
	ready    map[uuid.UUID]bool
	hostID   uuid.UUID

	log *logrus.Entry
}

func newRoom(code string, settings models.RoomSettings, log *logrus.Entry) *Room {
	r := &Room{
		Code:      code,
		Game:      game.NewRummyGame(code, settings),
		CreatedAt: time.Now(),
		queue:     make(chan func(), queueDepth),
		shutdown:  make(chan struct{}),
		sessions:  make(map[uuid.UUID]Session),
		ready:     make(map[uuid.UUID]bool),
		log:       log,
	}
	r.Game.BroadcastFn = r.broadcast
	r.Game.BroadcastToPlayerFn = r.sendToPlayer
	go r.run()
	return r
}

// run drains the action queue until the room shuts down.
func (r *Room) run() {
	for {
		select {
		case fn := <-r.queue:
			fn()
		case <-r.shutdown:
			// Drain what is already queued, then stop.
			for {
				select {
				case fn := <-r.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Enqueue submits an action for serialized execution. It never blocks the
// caller: a full queue rejects the action so one flooding client cannot
// stall the reader goroutines of everyone else.
func (r *Room) Enqueue(fn func()) error {
	select {
	case <-r.shutdown:
		return ErrRoomClosed
	default:
	}
	select {
	case r.queue <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Join seats a player and registers their session. The first human to join
// becomes the host. The session goes in before AddPlayer runs so the joiner
// receives their own join and roster events.
func (r *Room) Join(p *models.Player, sess Session) (uint8, error) {
	if sess != nil {
		r.Game.Mu.Lock()
		if old, ok := r.sessions[p.ID]; ok && old != sess {
			old.Kick("replaced by a newer connection")
		}
		r.sessions[p.ID] = sess
		r.Game.Mu.Unlock()
	}

	seat, err := r.Game.AddPlayer(p)
	if err != nil {
		r.Game.Mu.Lock()
		delete(r.sessions, p.ID)
		r.Game.Mu.Unlock()
		return 0, err
	}

	r.Game.Mu.Lock()
	if r.hostID == uuid.Nil && !p.IsBot {
		r.hostID = p.ID
	}
	r.Game.Mu.Unlock()
	return seat, nil
}

// Rejoin reattaches a session for an already-seated player.
func (r *Room) Rejoin(playerID uuid.UUID, sess Session) error {
	r.Game.Mu.Lock()
	if old, ok := r.sessions[playerID]; ok && old != sess {
		old.Kick("replaced by a newer connection")
	}
	r.sessions[playerID] = sess
	r.Game.Mu.Unlock()
	return r.Game.HandleReconnect(playerID, nil)
}

// Leave processes a deliberate exit and drops the session.
func (r *Room) Leave(playerID uuid.UUID) {
	r.Game.Mu.Lock()
	delete(r.sessions, playerID)
	r.Game.Mu.Unlock()
	r.Game.LeaveRoom(playerID)
}

// Disconnect drops the session but keeps the seat for reconnection.
func (r *Room) Disconnect(playerID uuid.UUID) {
	r.Game.Mu.Lock()
	delete(r.sessions, playerID)
	r.Game.Mu.Unlock()
	r.Game.HandleDisconnect(playerID)
}

// Start begins the match; only the host may do so.
func (r *Room) Start(requesterID uuid.UUID) error {
	r.Game.Mu.Lock()
	host := r.hostID
	r.Game.Mu.Unlock()
	if requesterID != host {
		return ErrNotHost
	}
	return r.Game.Start()
}

// SetReady records lobby readiness and announces it. Purely informational:
// the host decides when to start.
func (r *Room) SetReady(playerID uuid.UUID, ready bool) {
	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	r.ready[playerID] = ready
	r.broadcast(game.GameEvent{
		Type:    game.EventPlayerReady,
		Payload: map[string]interface{}{"playerId": playerID, "ready": ready},
	})
}

// HostID returns the current host player.
func (r *Room) HostID() uuid.UUID {
	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	return r.hostID
}

// close stops the worker. Idempotent under the registry lock.
func (r *Room) close() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.shutdown)
	r.Game.Mu.Lock()
	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[uuid.UUID]Session)
	r.Game.Mu.Unlock()
	for _, s := range sessions {
		s.Kick("room closed")
	}
}

// broadcast fans an event out to every attached session.
// Called with the game lock held.
func (r *Room) broadcast(ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.WithError(err).WithField("event", ev.Type).Error("marshal broadcast event")
		return
	}
	for id, sess := range r.sessions {
		if !sess.Send(data) {
			r.log.WithField("player_id", id).Warn("session send buffer full, dropping client")
			delete(r.sessions, id)
		}
	}
}

// sendToPlayer delivers a private event to a single session.
// Called with the game lock held.
func (r *Room) sendToPlayer(playerID uuid.UUID, ev game.GameEvent) {
	sess, ok := r.sessions[playerID]
	if !ok {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.WithError(err).WithField("event", ev.Type).Error("marshal player event")
		return
	}
	if !sess.Send(data) {
		r.log.WithField("player_id", playerID).Warn("session send buffer full, dropping client")
		delete(r.sessions, playerID)
	}
}
