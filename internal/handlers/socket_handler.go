package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/middleware"
	"github.com/raftaar/raftaar-backend/internal/models"
	"github.com/raftaar/raftaar-backend/internal/presence"
	"github.com/raftaar/raftaar-backend/internal/realtime"
)

const (
	EventJoin           = "join"
	EventJoined         = "joined"
	EventUpdateLocation = "update-location-captain"
	EventError          = "error"

	eventTimeout = 10 * time.Second
)

type joinData struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

type locationData struct {
	UserID   string                 `json:"userId"`
	Location presence.LocationInput `json:"location"`
}

type socketError struct {
	Message string `json:"message"`
}

// SocketHandler runs the read side of each websocket and turns inbound
// events into presence operations.
type SocketHandler struct {
	hub    *realtime.Hub
	engine *presence.Engine
}

func NewSocketHandler(hub *realtime.Hub, engine *presence.Engine) *SocketHandler {
	return &SocketHandler{hub: hub, engine: engine}
}

// Upgrade admits only websocket handshakes.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve is the websocket.New callback for one connection.
func (h *SocketHandler) Serve(ws *websocket.Conn) {
	actorID, _ := ws.Locals(middleware.LocalActorID).(string)
	kind, _ := ws.Locals(middleware.LocalActorKind).(string)

	conn := h.hub.Attach(ws, actorID, kind)
	defer func() {
		h.hub.Detach(conn)
		conn.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := h.engine.Disconnect(ctx, conn.ID); err != nil {
			slog.Error("failed to unbind channel", "channel_id", conn.ID, "error", err.Error())
		}
	}()

	ws.SetReadDeadline(time.Now().Add(realtime.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(realtime.PongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed", "channel_id", conn.ID, "error", err.Error())
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(realtime.PongWait))

		if !conn.Allow() {
			conn.Send(EventError, socketError{Message: "Too many events, slow down"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		h.dispatch(ctx, conn, raw)
		cancel()
	}
}

func (h *SocketHandler) dispatch(ctx context.Context, conn *realtime.Conn, raw []byte) {
	var msg realtime.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		conn.Send(EventError, socketError{Message: "Malformed message"})
		return
	}

	switch msg.Event {
	case EventJoin:
		h.join(ctx, conn, msg.Data)
	case EventUpdateLocation:
		h.updateLocation(ctx, conn, msg.Data)
	default:
		conn.Send(EventError, socketError{Message: "Unknown event: " + msg.Event})
	}
}

func (h *SocketHandler) join(ctx context.Context, conn *realtime.Conn, data json.RawMessage) {
	var in joinData
	if err := json.Unmarshal(data, &in); err != nil {
		conn.Send(EventError, socketError{Message: "Malformed join"})
		return
	}
	id, ok := h.authorize(conn, in.UserID, in.UserType)
	if !ok {
		return
	}

	if err := h.engine.Join(ctx, id, models.ActorKind(in.UserType), conn.ID); err != nil {
		slog.Error("failed to bind channel",
			"actor_id", in.UserID, "actor_kind", in.UserType, "channel_id", conn.ID, "error", err.Error())
		conn.Send(EventError, socketError{Message: "Failed to update socket ID"})
		return
	}
	conn.Send(EventJoined, fiber.Map{"channelId": conn.ID})
}

func (h *SocketHandler) updateLocation(ctx context.Context, conn *realtime.Conn, data json.RawMessage) {
	var in locationData
	if err := json.Unmarshal(data, &in); err != nil {
		conn.Send(EventError, socketError{Message: "Invalid location data"})
		return
	}
	id, ok := h.authorize(conn, in.UserID, string(models.KindCaptain))
	if !ok {
		return
	}

	if err := h.engine.UpdateLocation(ctx, id, in.Location); err != nil {
		if apperr.KindOf(err) == apperr.Validation {
			conn.Send(EventError, socketError{Message: "Invalid location data"})
			return
		}
		slog.Error("failed to update location",
			"actor_id", in.UserID, "actor_kind", string(models.KindCaptain), "channel_id", conn.ID, "error", err.Error())
		conn.Send(EventError, socketError{Message: "Failed to update location"})
	}
}

// authorize checks that an event names the connection's own actor.
func (h *SocketHandler) authorize(conn *realtime.Conn, userID, userType string) (uuid.UUID, bool) {
	id, err := uuid.Parse(userID)
	if err != nil || userID != conn.ActorID || userType != conn.Kind {
		conn.Send(EventError, socketError{Message: "Event does not match the authenticated account"})
		return uuid.Nil, false
	}
	return id, true
}
