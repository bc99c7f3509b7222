// Package ws carries the websocket transport: one session per player,
// decoding client intents into room-queue actions and pumping game events
// back out.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// sendBuffer is the per-client outbound backlog. A client that cannot
	// keep up with this many frames is cut loose rather than allowed to
	// stall the room.
	sendBuffer = 64

	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Session wraps one websocket connection with a buffered writer goroutine,
// so event fan-out from the game never blocks on a slow socket.
type Session struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	log *logrus.Entry
}

func newSession(conn *websocket.Conn, log *logrus.Entry) *Session {
	s := &Session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
	go s.writePump()
	return s
}

// Send queues a frame for delivery. Non-blocking: returns false when the
// client's backlog is full, which the room treats as a dead session.
func (s *Session) Send(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Kick closes the connection with a policy-violation close frame.
func (s *Session) Kick(reason string) {
	s.closeWith(websocket.StatusPolicyViolation, reason)
}

func (s *Session) closeWith(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close(code, reason)
	})
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := s.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.WithError(err).Debug("write failed, closing session")
				s.closeWith(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				s.log.WithError(err).Debug("ping failed, closing session")
				s.closeWith(websocket.StatusAbnormalClosure, "ping failed")
				return
			}
		}
	}
}
