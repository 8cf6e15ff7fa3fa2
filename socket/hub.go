// Package socket pushes ledger events to the members of a room over
// socket.io.
package socket

import (
	"context"
	"net/http"
	"time"

	"homematch/metrics"
	"homematch/models"

	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"
)

const (
	namespace = "/"
	// EventName is emitted for every appended ledger event.
	EventName = "roomEvent"
)

// Members checks room membership before a connection may subscribe.
type Members interface {
	GetMember(ctx context.Context, roomID, userID string) (*models.Member, error)
}

// JoinRequest is the payload of the "join" event.
type JoinRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// joiner is the part of socketio.Conn the join handler needs.
type joiner interface {
	ID() string
	Join(room string)
	Emit(event string, v ...interface{})
}

// Hub owns the socket.io server and implements services.EventPublisher.
type Hub struct {
	server  *socketio.Server
	members Members
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewHub(members Members, logger *zap.Logger, m *metrics.Metrics) *Hub {
	h := &Hub{
		server:  socketio.NewServer(nil),
		members: members,
		logger:  logger,
		metrics: m,
	}

	h.server.OnConnect(namespace, func(c socketio.Conn) error {
		h.metrics.SocketConnected()
		h.logger.Info("✅ socket connected", zap.String("conn_id", c.ID()))
		return nil
	})

	h.server.OnEvent(namespace, "join", func(c socketio.Conn, req JoinRequest) {
		h.handleJoin(c, req)
	})

	h.server.OnError(namespace, func(c socketio.Conn, err error) {
		id := ""
		if c != nil {
			id = c.ID()
		}
		h.logger.Warn("⚠️ socket error", zap.String("conn_id", id), zap.Error(err))
	})

	h.server.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		h.metrics.SocketDisconnected()
		h.logger.Info("❌ socket disconnected", zap.String("conn_id", c.ID()), zap.String("reason", reason))
	})

	return h
}

func (h *Hub) handleJoin(c joiner, req JoinRequest) {
	if req.RoomID == "" || req.UserID == "" {
		h.logger.Warn("❌ invalid join request", zap.String("conn_id", c.ID()))
		c.Emit("joinError", "roomId and userId are required")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.members.GetMember(ctx, req.RoomID, req.UserID); err != nil {
		h.logger.Warn("❌ join refused",
			zap.String("conn_id", c.ID()),
			zap.String("room_id", req.RoomID),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		c.Emit("joinError", "not a member of this room")
		return
	}
	c.Join(req.RoomID)
	c.Emit("joined", req.RoomID)
	h.logger.Info("👥 socket joined room",
		zap.String("conn_id", c.ID()),
		zap.String("room_id", req.RoomID),
		zap.String("user_id", req.UserID))
}

// Publish broadcasts event to the connections subscribed to its room.
func (h *Hub) Publish(event models.Event) {
	h.server.BroadcastToRoom(namespace, event.RoomID, EventName, event)
	h.logger.Debug("📣 event broadcast", zap.String("room_id", event.RoomID), zap.String("type", event.Type))
}

// Handler serves the socket.io endpoint.
func (h *Hub) Handler() http.Handler { return h.server }

// Serve runs the socket.io event loop until Close.
func (h *Hub) Serve() error { return h.server.Serve() }

func (h *Hub) Close() error { return h.server.Close() }
