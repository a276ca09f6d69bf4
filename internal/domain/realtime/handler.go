package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/alert"
	"github.com/heartlink/heartlink-api/internal/middleware"
	"github.com/heartlink/heartlink-api/internal/pkg/response"
)

// WebSocket constants
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64KB
)

// Handler handles the realtime WebSocket endpoint
type Handler struct {
	store       docstore.Store
	hub         *Hub
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader
	alertWindow time.Duration
}

// RateLimiter for inbound WebSocket messages
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  60,          // 60 messages
		window: time.Minute, // per minute
	}
}

// Allow checks if user can send another control message
func (rl *RateLimiter) Allow(userID uuid.UUID) bool {
	if rl.redis == nil {
		return true // No Redis, allow all
	}

	key := fmt.Sprintf("ratelimit:realtime:%s", userID)
	ctx := context.Background()

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return true // Fail open
	}

	if count == 1 {
		rl.redis.Expire(ctx, key, rl.window)
	}

	return count <= int64(rl.limit)
}

// NewHandler creates the realtime handler
func NewHandler(store docstore.Store, hub *Hub, redisClient *redis.Client, allowedOrigins []string, alertWindow time.Duration) *Handler {
	if alertWindow <= 0 {
		alertWindow = alert.DefaultWindow
	}
	return &Handler{
		store:       store,
		hub:         hub,
		rateLimiter: NewRateLimiter(redisClient),
		alertWindow: alertWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Allow all in development
				if len(allowedOrigins) == 0 {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// viewState tracks which conversation the client reports as open. Updated by
// the reader pump, read by the notifier on every delivery.
type viewState struct {
	mu     sync.RWMutex
	active string
}

func (v *viewState) ActiveConversationID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.active
}

func (v *viewState) set(id string) {
	v.mu.Lock()
	v.active = id
	v.mu.Unlock()
}

// hubSink delivers gated alerts to one user's connections
type hubSink struct {
	hub    *Hub
	userID uuid.UUID
}

func (s *hubSink) OnEvent(eventType, title, body string) {
	payload := map[string]string{
		"type":  eventType,
		"title": title,
		"body":  body,
	}
	if err := s.hub.SendToUserJSON(s.userID, payload); err != nil {
		log.Error().Err(err).Str("user_id", s.userID.String()).Msg("Failed to deliver realtime event")
	}
}

// WebSocket handles WS /ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Connection{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.hub.Register(client)

	// Each connection gets its own gate and diff state: a reconnect starts a
	// fresh session with an empty once-set and cold diff maps.
	view := &viewState{}
	gate := alert.NewWithClock(&hubSink{hub: h.hub, userID: userID}, h.alertWindow, time.Now)
	notifier := NewNotifier(h.store, userID, view, gate)
	notifier.Start(context.Background())

	go h.wsReader(client, view, notifier)
	go h.wsWriter(client)
}

func (h *Handler) wsReader(client *Connection, view *viewState, notifier *Notifier) {
	defer func() {
		notifier.Stop()
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("WebSocket read error")
			}
			break
		}

		// Rate limiting for WebSocket messages
		if !h.rateLimiter.Allow(client.UserID) {
			continue
		}

		// Parse incoming message
		var event struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		// Handle events
		switch event.Type {
		case "viewing":
			view.set(event.ConversationID)
		case "left":
			view.set("")
		}
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping for heartbeat
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
