package dto

import (
	"time"

	"github.com/google/uuid"
)

type EscalationResponse struct {
	Id             uuid.UUID `json:"id"`
	ConversationId uuid.UUID `json:"conversation_id"`
	TurnId         uuid.UUID `json:"turn_id"`
	Reason         string    `json:"reason"`
	Priority       int       `json:"priority"`
	Question       string    `json:"question"`
	AnswerContext  string    `json:"answer_context,omitempty"`
	DialogState    string    `json:"dialog_state"`
	Resolved       bool      `json:"resolved"`
	CreatedAt      time.Time `json:"created_at"`
}

type PipelineReloadResponse struct {
	Version  int       `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
}

type CacheStatsResponse struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
}
