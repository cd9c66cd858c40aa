package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans escalation events out to connected operator consoles. Redis
// pub/sub carries the events across instances so an operator connected to
// any replica sees every handoff.
type Hub struct {
	// Registered operator connections: OperatorID -> list (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out
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
			h.clients[client.OperatorID] = append(h.clients[client.OperatorID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Operator connected", map[string]interface{}{"operator_id": client.OperatorID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.OperatorID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.OperatorID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.OperatorID]) == 0 {
					delete(h.clients, client.OperatorID)
					h.logger.Info("Hub", "Operator disconnected", map[string]interface{}{"operator_id": client.OperatorID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every connected operator. Escalations are
// unassigned when created, so every console gets them.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		h.logger.Error("Hub", "broadcast payload marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.sendLocal(payload)

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"target_operator_id": "*",
			"message":            json.RawMessage(payload),
		})
		h.rdb.Publish(context.Background(), "operator_events", envelope)
	}
}

// Send delivers an event to one operator's connections.
func (h *Hub) Send(operatorID uuid.UUID, eventType string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		h.logger.Error("Hub", "send payload marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	clients, localFound := h.clients[operatorID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- payload:
			default:
				h.logger.Warn("Hub", "Send buffer full, dropping connection", map[string]interface{}{"operator_id": operatorID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"target_operator_id": operatorID.String(),
			"message":            json.RawMessage(payload),
		})
		h.rdb.Publish(context.Background(), "operator_events", envelope)
	}
}

func (h *Hub) sendLocal(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- payload:
			default:
				close(client.Send)
				h.unregister <- client
			}
		}
	}
}

// subscribeToRedis relays events published by other instances. Every
// instance subscribes to the shared channel and filters for operators it
// holds locally.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "operator_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetOperatorID string          `json:"target_operator_id"`
			Message          json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetOperatorID == "*" {
			h.sendLocal(payload.Message)
			continue
		}

		uid, err := uuid.Parse(payload.TargetOperatorID)
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
