package events

import "time"

// Event type codes.
const (
	TypeEscalationCreated = "ESCALATION_CREATED"
	TypeTurnCompleted     = "TURN_COMPLETED"
	TypeCacheHit          = "CACHE_HIT"
	TypePipelineReloaded  = "PIPELINE_RELOADED"
)

// NewEscalationCreated is emitted once per escalated turn, consumed by the
// operator notification path.
func NewEscalationCreated(conversationID, turnID, reason string, priority int, question string) Event {
	return BaseEvent{
		Type: TypeEscalationCreated,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"turn_id":         turnID,
			"reason":          reason,
			"priority":        priority,
			"question":        question,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnCompleted records the routing outcome of a processed turn.
func NewTurnCompleted(conversationID, turnID, outcome, reason string, cached bool) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"turn_id":         turnID,
			"outcome":         outcome,
			"reason":          reason,
			"cached":          cached,
		},
		OccurredAt: time.Now(),
	}
}

// NewCacheHit is emitted when a turn is served from the answer cache.
func NewCacheHit(conversationID, normalizedKey string, exact bool) Event {
	return BaseEvent{
		Type: TypeCacheHit,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"normalized_key":  normalizedKey,
			"exact":           exact,
		},
		OccurredAt: time.Now(),
	}
}

// NewPipelineReloaded is emitted after a successful pipeline config reload.
func NewPipelineReloaded(version int) Event {
	return BaseEvent{
		Type: TypePipelineReloaded,
		Data: map[string]interface{}{
			"version": version,
		},
		OccurredAt: time.Now(),
	}
}
