package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/acca-builder/internal/api/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event types pushed to subscribers.
const (
	EventTicketGenerated = "ticket.generated"
	EventLegRemoved      = "ticket.leg_removed"
	EventLegReplaced     = "ticket.leg_replaced"
	EventSlipArchived    = "archive.placed"
	EventArchiveCleared  = "archive.cleared"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin filtering happens in the CORS layer
	},
}

// Event is the envelope written to every subscriber.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a WebSocket client. An empty SessionID subscribes to
// every session event. Owner is the authenticated archive owner, empty for
// anonymous clients; archive events only reach clients of the same owner.
type Client struct {
	SessionID string
	Owner     string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
}

// Hub maintains active WebSocket connections and fans events out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

type outbound struct {
	sessionID string
	owner     string
	byOwner   bool
	data      []byte
}

func (c *Client) wants(msg outbound) bool {
	if msg.byOwner {
		return c.Owner == msg.owner
	}
	return c.SessionID == "" || c.SessionID == msg.sessionID
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registration and delivery until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID,
				"owner":         client.Owner,
				"total_clients": total,
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID,
				"total_clients": total,
			}).Info("WebSocket client disconnected")

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.wants(msg) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// HandleWebSocket upgrades the request. The optional session query parameter
// narrows the feed to one ticket session. Run it behind middleware.OptionalAuth
// so the client is bound to its archive owner.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		SessionID: c.Query("session"),
		Owner:     middleware.Owner(c),
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Hub:       h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Publish queues a session event for delivery. It never blocks the caller;
// events are dropped when the queue is full.
func (h *Hub) Publish(eventType, sessionID string, data interface{}) {
	h.enqueue(eventType, outbound{sessionID: sessionID}, Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// PublishToOwner queues an event that only clients of owner receive.
func (h *Hub) PublishToOwner(eventType, owner string, data interface{}) {
	h.enqueue(eventType, outbound{owner: owner, byOwner: true}, Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) enqueue(eventType string, msg outbound, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}
	msg.data = payload

	select {
	case h.broadcast <- msg:
	default:
		h.logger.WithField("type", eventType).Warn("WebSocket broadcast queue full, dropping event")
	}
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump drains the connection so control frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
