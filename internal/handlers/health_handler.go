package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/raftaar/raftaar-backend/internal/dto"
)

type HealthHandler struct {
	store       string
	ping        func() error
	connections func() int
}

// NewHealthHandler reports on the given store. ping may be nil for the
// in-memory store.
func NewHealthHandler(store string, ping func() error, connections func() int) *HealthHandler {
	return &HealthHandler{store: store, ping: ping, connections: connections}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.ping == nil {
		dbStatus = "n/a"
	} else if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	conns := 0
	if h.connections != nil {
		conns = h.connections()
	}

	return c.JSON(dto.HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Store:       h.store,
		DB:          dbStatus,
		Connections: conns,
	})
}
