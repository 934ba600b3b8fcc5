package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"notechat-be/internal/model"
	"notechat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub routes reply-ready notifications to the websocket connections of a
// user. A user may hold several connections at once (multi-device).
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fanout. May be nil for
	// single-instance deployments.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send implements service.NotificationDelivery.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})

	h.mu.RLock()
	clients, localFound := h.clients[userID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	// Other instances may hold connections for the same user.
	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_user_id": userID.String(),
			"message":        data,
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[uid]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}
