package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	Title               string                 `json:"title" validate:"required"`
	Content             string                 `json:"content" validate:"required"`
	Category            string                 `json:"category"`
	ClarifyingQuestions []string               `json:"clarifying_questions"`
	RequiresHandoff     bool                   `json:"requires_handoff"`
	Metadata            map[string]interface{} `json:"metadata"`
}

type CreateDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowDocumentResponse struct {
	Id                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Content             string     `json:"content"`
	Category            string     `json:"category"`
	ClarifyingQuestions []string   `json:"clarifying_questions,omitempty"`
	RequiresHandoff     bool       `json:"requires_handoff"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}
