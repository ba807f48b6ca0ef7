package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// BreakerState is implemented by stores guarded by a circuit breaker.
type BreakerState interface {
	State() gobreaker.State
}

// ConnectionCounter is implemented by the websocket hub.
type ConnectionCounter interface {
	GetConnectionCount() int
}

type HealthHandler struct {
	cache   BreakerState
	clients ConnectionCounter
	started time.Time
}

func NewHealthHandler(cache BreakerState, clients ConnectionCounter) *HealthHandler {
	return &HealthHandler{
		cache:   cache,
		clients: clients,
		started: time.Now(),
	}
}

// GetHealth returns liveness plus the state of the session cache
func (h *HealthHandler) GetHealth(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"service":   "acca-builder",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.cache != nil {
		state := h.cache.State()
		body["session_cache"] = state.String()
		if state == gobreaker.StateOpen {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	} else {
		body["session_cache"] = "memory"
	}
	if h.clients != nil {
		body["websocket_clients"] = h.clients.GetConnectionCount()
	}

	c.JSON(status, body)
}
