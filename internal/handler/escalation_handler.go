package handler

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	ws "github.com/letya999/support-rag-sub001/internal/websocket"
	"github.com/letya999/support-rag-sub001/pkg/events"
	pktNats "github.com/letya999/support-rag-sub001/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// EscalationHandler bridges the NATS escalation stream to the operator
// websocket feed and exposes the websocket endpoint itself.
type EscalationHandler struct {
	sub *pktNats.Subscriber
	hub *ws.Hub
	log logger.ILogger
}

func NewEscalationHandler(sub *pktNats.Subscriber, hub *ws.Hub, log logger.ILogger) *EscalationHandler {
	return &EscalationHandler{sub: sub, hub: hub, log: log}
}

// Start subscribes to escalation events. Durable consumer: restarts pick
// up where the previous instance left off.
func (h *EscalationHandler) Start() {
	if h.sub == nil {
		h.log.Warn("EscalationHandler", "NATS unavailable, operator feed limited to local events", nil)
		return
	}
	err := h.sub.Subscribe("events."+events.TypeEscalationCreated, "operator-feed", func(ctx context.Context, event events.Event) error {
		h.hub.Broadcast("escalation", event.Payload())
		return nil
	})
	if err != nil {
		h.log.Error("EscalationHandler", "subscribe failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *EscalationHandler) RegisterRoutes(r fiber.Router) {
	g := r.Group("/ws")

	// Upgrade guard
	g.Use("/operator", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	g.Get("/operator", websocket.New(func(c *websocket.Conn) {
		operatorID, err := uuid.Parse(c.Query("operator_id"))
		if err != nil {
			operatorID = uuid.New() // anonymous console
		}
		ws.ServeWs(h.hub, c, operatorID)
	}))
}
