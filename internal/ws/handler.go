package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/9553s/casino-rummy-master/internal/auth"
	"github.com/9553s/casino-rummy-master/internal/models"
	"github.com/9553s/casino-rummy-master/internal/room"
)

// errExpectedJoin rejects sockets that speak before joining.
var errExpectedJoin = errors.New("ws: first frame must be join_room")

// clientIntent is the envelope for every client-to-server frame.
type clientIntent struct {
	Type    string                 `json:"type"`
	Name    string                 `json:"name,omitempty"`
	Token   string                 `json:"token,omitempty"`
	Ready   bool                   `json:"ready,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Handler owns the HTTP surface: room creation and the per-room websocket.
type Handler struct {
	Registry *room.Registry
	Auth     *auth.Service
	Log      *logrus.Logger
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/rooms", h.CreateRoom)
	mux.HandleFunc("/ws/", h.ServeWS)
}

// CreateRoom allocates a room from a JSON settings payload and returns its
// join code.
func (h *Handler) CreateRoom(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Absent fields keep the standard table defaults.
	settings := models.DefaultRoomSettings()
	if err := json.NewDecoder(req.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "malformed settings", http.StatusBadRequest)
		return
	}

	r, err := h.Registry.CreateRoom(settings)
	if err != nil {
		h.Log.WithError(err).Error("create room")
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":     r.Code,
		"settings": r.Game.Settings,
	})
}

// ServeWS upgrades /ws/{code} and runs the session's read loop until the
// socket drops.
func (h *Handler) ServeWS(w http.ResponseWriter, req *http.Request) {
	code := strings.ToUpper(strings.TrimPrefix(req.URL.Path, "/ws/"))
	rm, err := h.Registry.GetRoom(code)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.Log.WithError(err).Warn("websocket accept failed")
		return
	}

	log := h.Log.WithField("room", code)
	sess := newSession(conn, log)
	defer sess.closeWith(websocket.StatusNormalClosure, "bye")

	playerID, err := h.handshake(req.Context(), rm, conn, sess, log)
	if err != nil {
		sess.Kick(err.Error())
		return
	}
	log = log.WithField("player_id", playerID)

	h.readLoop(req.Context(), rm, sess, conn, playerID, log)
}

// handshake waits for the opening join_room intent and seats the player,
// either fresh (by name) or by reconnect token.
func (h *Handler) handshake(ctx context.Context, rm *room.Room, conn *websocket.Conn, sess *Session, log *logrus.Entry) (uuid.UUID, error) {
	var intent clientIntent
	if err := readJSON(ctx, conn, &intent); err != nil {
		return uuid.Nil, err
	}
	if intent.Type != "join_room" {
		return uuid.Nil, errExpectedJoin
	}

	// Token path: resume an existing seat.
	if intent.Token != "" {
		claims, err := h.Auth.ParseSeatToken(intent.Token)
		if err != nil {
			log.WithError(err).Warn("rejected reconnect token")
			return uuid.Nil, err
		}
		if claims.RoomCode != rm.Code {
			return uuid.Nil, auth.ErrTokenInvalid
		}
		if err := rm.Rejoin(claims.PlayerID, sess); err != nil {
			return uuid.Nil, err
		}
		log.WithField("seat", claims.Seat).Info("player reconnected")
		return claims.PlayerID, nil
	}

	name := strings.TrimSpace(intent.Name)
	if name == "" {
		name = "Player"
	}
	p := &models.Player{ID: uuid.New(), Name: name}
	seat, err := rm.Join(p, sess)
	if err != nil {
		return uuid.Nil, err
	}

	token, err := h.Auth.IssueSeatToken(rm.Code, seat, p.ID)
	if err != nil {
		log.WithError(err).Error("issue seat token")
	}
	welcome, _ := json.Marshal(map[string]interface{}{
		"type":     "room_joined",
		"playerId": p.ID,
		"seat":     seat,
		"token":    token,
		"host":     rm.HostID() == p.ID,
	})
	sess.Send(welcome)
	log.WithField("seat", seat).Info("player joined")
	return p.ID, nil
}

// readLoop decodes intents and pushes them through the room's serialized
// queue until the connection dies.
func (h *Handler) readLoop(ctx context.Context, rm *room.Room, sess *Session, conn *websocket.Conn, playerID uuid.UUID, log *logrus.Entry) {
	for {
		var intent clientIntent
		if err := readJSON(ctx, conn, &intent); err != nil {
			log.WithError(err).Debug("read loop ended")
			rm.Disconnect(playerID)
			return
		}

		switch intent.Type {
		case "leave_room":
			// A full queue must not leave the seat marked connected with
			// no socket behind it.
			if err := rm.Enqueue(func() { rm.Leave(playerID) }); err != nil {
				rm.Leave(playerID)
			}
			sess.closeWith(websocket.StatusNormalClosure, "left room")
			return

		case "start_game":
			h.enqueue(rm, sess, func() {
				if err := rm.Start(playerID); err != nil {
					log.WithError(err).Info("start refused")
				}
			})

		case "ready":
			ready := intent.Ready
			h.enqueue(rm, sess, func() { rm.SetReady(playerID, ready) })

		case "game_action":
			action, ok := mapGameAction(intent.Payload)
			if !ok {
				log.Warn("unmappable game_action payload")
				continue
			}
			h.enqueue(rm, sess, func() { rm.Game.HandlePlayerAction(playerID, action) })

		case "declare":
			payload := intent.Payload
			h.enqueue(rm, sess, func() {
				rm.Game.HandlePlayerAction(playerID, models.GameAction{
					ActionType: "action_declare",
					Payload:    payload,
				})
			})

		default:
			log.WithField("intent", intent.Type).Warn("unknown intent")
		}
	}
}

// enqueue submits through the room queue, surfacing backpressure to the
// client instead of silently dropping.
func (h *Handler) enqueue(rm *room.Room, sess *Session, fn func()) {
	if err := rm.Enqueue(fn); err != nil {
		frame, _ := json.Marshal(map[string]interface{}{
			"type": "action_rejected",
			"payload": map[string]interface{}{
				"code": "queue_full",
			},
		})
		sess.Send(frame)
	}
}

// mapGameAction translates the wire action names onto the game's intents.
func mapGameAction(payload map[string]interface{}) (models.GameAction, bool) {
	name, _ := payload["action"].(string)
	switch name {
	case "draw":
		return models.GameAction{ActionType: "action_draw", Payload: payload}, true
	case "discard":
		return models.GameAction{ActionType: "action_discard", Payload: payload}, true
	case "withdraw":
		return models.GameAction{ActionType: "action_withdraw", Payload: payload}, true
	case "arrange":
		return models.GameAction{ActionType: "action_arrange", Payload: payload}, true
	default:
		return models.GameAction{}, false
	}
}

func readJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
