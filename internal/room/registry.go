package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/9553s/casino-rummy-master/internal/models"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 6

// evictDelay is how long a finished or abandoned room lingers before the
// registry reaps it, giving clients time to fetch final standings.
const evictDelay = 2 * time.Minute

// Registry tracks every live room by its join code.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	log   *logrus.Logger
}

// NewRegistry creates an empty room registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		log:   log,
	}
}

// CreateRoom allocates a room with a fresh join code and seats any
// configured bot opponents.
func (reg *Registry) CreateRoom(settings models.RoomSettings) (*Room, error) {
	settings = settings.Normalize()

	reg.mu.Lock()
	var code string
	for attempt := 0; ; attempt++ {
		if attempt > 20 {
			reg.mu.Unlock()
			return nil, errors.New("room: could not allocate a unique code")
		}
		c, err := randomCode()
		if err != nil {
			reg.mu.Unlock()
			return nil, err
		}
		if _, taken := reg.rooms[c]; !taken {
			code = c
			break
		}
	}

	r := newRoom(code, settings, reg.log.WithField("room", code))
	reg.rooms[code] = r
	reg.mu.Unlock()

	r.Game.OnMatchEnd = func(roomCode string, winner uuid.UUID, totals map[uuid.UUID]int) {
		time.AfterFunc(evictDelay, func() { reg.Remove(roomCode) })
	}

	for i := 0; i < settings.BotSeats; i++ {
		bot := &models.Player{
			ID:    uuid.New(),
			Name:  fmt.Sprintf("Bot %d", i+1),
			IsBot: true,
		}
		if _, err := r.Join(bot, nil); err != nil {
			reg.log.WithError(err).WithField("room", code).Warn("could not seat bot")
			break
		}
	}

	reg.log.WithFields(logrus.Fields{
		"room":        code,
		"max_players": settings.MaxPlayers,
		"bots":        settings.BotSeats,
	}).Info("room created")
	return r, nil
}

// GetRoom looks a room up by code.
func (reg *Registry) GetRoom(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove closes and drops a room. Safe to call more than once.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if ok {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()
	if ok {
		r.close()
		reg.log.WithField("room", code).Info("room removed")
	}
}

// ReapEmpty removes rooms with no human connection left. Called
// periodically by the server.
func (reg *Registry) ReapEmpty() int {
	reg.mu.Lock()
	var stale []string
	for code, r := range reg.rooms {
		// Fresh rooms get a grace window before their first join.
		if time.Since(r.CreatedAt) < evictDelay {
			continue
		}
		if r.Game.Empty() {
			stale = append(stale, code)
		}
	}
	reg.mu.Unlock()

	for _, code := range stale {
		reg.Remove(code)
	}
	return len(stale)
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
