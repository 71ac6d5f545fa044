package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common"
	"duel_arena/internal/common/security"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin policy is enforced upstream
	},
}

// Handler upgrades authenticated requests and routes room events to the duel
// service. Every request gets exactly one Ack; everything room-wide arrives
// as hub broadcasts.
type Handler struct {
	hub      *Hub
	duels    *service.DuelService
	userRepo repository.UserRepository
}

func NewHandler(hub *Hub, duels *service.DuelService, userRepo repository.UserRepository) *Handler {
	return &Handler{hub: hub, duels: duels, userRepo: userRepo}
}

// ServeWS handles GET /ws. The JWT is verified by the jwtauth middleware; an
// unauthenticated upgrade is rejected before any socket work happens.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
		return
	}
	username, err := security.GetUsernameFromClaims(claims)
	if err != nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
		return
	}

	rating := model.DefaultRating
	if user, err := h.userRepo.FindByID(r.Context(), userID); err == nil {
		rating = user.Rating
	} else if !errors.Is(err, common.ErrNotFound) {
		log.Printf("WARN: rating lookup failed for user %s: %v", userID, err)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Rating:   rating,
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
	h.hub.register(client)
	log.Printf("INFO: %s connected (%s)", username, client.ID)

	go client.writePump()
	go client.readPump(h.handleEvent, h.disconnect)
}

// disconnect treats a dropped socket as leaving the room, which forfeits an
// in-progress 1v1.
func (h *Handler) disconnect(c *Client) {
	h.duels.LeaveRoom(c.ID)
	h.hub.unregister(c)
	log.Printf("INFO: %s disconnected (%s)", c.Username, c.ID)
}

func (h *Handler) handleEvent(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch env.Type {
	case TypeCreateRoom:
		var req createRoomRequest
		if !h.decode(c, env, &req) {
			return
		}
		room, err := h.duels.CreateRoom(c.ID, h.identity(c), service.CreateRoomParams{
			RoomID:           req.RoomID,
			TimeLimitSeconds: req.TimeLimitSeconds,
			Difficulty:       req.Difficulty,
			Team:             req.Team,
		})
		if err != nil {
			h.fail(c, env.Type, err)
			return
		}
		h.hub.BindRoom(c, room.ID)
		h.ack(c, env.Type, map[string]interface{}{"room_id": room.ID})

	case TypeJoinRoom:
		var req joinRoomRequest
		if !h.decode(c, env, &req) {
			return
		}
		room, err := h.duels.JoinRoom(c.ID, h.identity(c), req.RoomID)
		if err != nil {
			h.fail(c, env.Type, err)
			return
		}
		h.hub.BindRoom(c, room.ID)
		h.ack(c, env.Type, map[string]interface{}{
			"room_id":      room.ID,
			"participants": room.Participants(),
		})

	case TypeStartMatch:
		var req startMatchRequest
		if !h.decode(c, env, &req) {
			return
		}
		room := h.duels.RoomByConn(c.ID)
		if room == nil {
			h.fail(c, env.Type, common.ErrRoomNotFound)
			return
		}
		if _, _, err := h.duels.Start(ctx, room.ID, c.UserID, req.ProblemID); err != nil {
			h.fail(c, env.Type, err)
			return
		}
		h.ack(c, env.Type, nil)

	case TypeSubmitCode:
		var req submitCodeRequest
		if !h.decode(c, env, &req) {
			return
		}
		room := h.duels.RoomByConn(c.ID)
		if room == nil {
			h.fail(c, env.Type, common.ErrRoomNotFound)
			return
		}
		result, err := h.duels.Submit(ctx, c.UserID, service.SubmitParams{
			RoomID:    room.ID,
			ProblemID: req.ProblemID,
			Code:      req.Code,
			Language:  req.Language,
			Stdin:     req.Stdin,
		})
		if err != nil {
			h.fail(c, env.Type, err)
			return
		}
		h.ack(c, env.Type, result)

	case TypeLeaveRoom:
		h.duels.LeaveRoom(c.ID)
		h.hub.UnbindRoom(c)
		h.ack(c, env.Type, nil)

	default:
		h.fail(c, env.Type, common.Errorf("unknown event type %q: %w", env.Type, common.ErrBadRequest))
	}
}

func (h *Handler) identity(c *Client) service.Identity {
	return service.Identity{UserID: c.UserID, Username: c.Username, Rating: c.Rating}
}

func (h *Handler) decode(c *Client, env Envelope, dst interface{}) bool {
	if len(env.Payload) == 0 {
		h.fail(c, env.Type, common.Errorf("missing payload: %w", common.ErrBadRequest))
		return false
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		h.fail(c, env.Type, common.Errorf("invalid payload: %w", common.ErrBadRequest))
		return false
	}
	return true
}

func (h *Handler) ack(c *Client, request string, data interface{}) {
	h.reply(c, Ack{Request: request, OK: true, Data: data})
}

func (h *Handler) fail(c *Client, request string, err error) {
	h.reply(c, Ack{Request: request, OK: false, Error: err.Error()})
}

func (h *Handler) reply(c *Client, ack Ack) {
	data, err := json.Marshal(outEnvelope{Type: "ack", Payload: ack})
	if err != nil {
		log.Printf("ERROR: failed to marshal ack: %v", err)
		return
	}
	if !c.trySend(data) {
		log.Printf("WARN: dropping ack for connection %s", c.ID)
	}
}
