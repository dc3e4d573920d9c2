package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler relays a session's live output channel to websocket viewers.
// Workers publish transcript events to the session's Redis channel; any
// number of viewers may subscribe.
type StreamHandler struct {
	orchestrator *services.SessionOrchestrator
	redisClient  *redis.Client
}

// NewStreamHandler creates a new StreamHandler instance.
func NewStreamHandler(orchestrator *services.SessionOrchestrator, redisClient *redis.Client) *StreamHandler {
	return &StreamHandler{orchestrator: orchestrator, redisClient: redisClient}
}

// Stream upgrades the connection and forwards published session events until
// the viewer disconnects. Access is checked before the upgrade so refused
// viewers get a plain 404.
func (h *StreamHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.orchestrator.CanView(sessionID, middleware.Account(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Stream] Upgrade failed for session %s: %v", sessionID, err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, services.MessageChannel(sessionID))
	defer func() { _ = pubsub.Close() }()

	// Drain reads so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := pubsub.Channel()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
