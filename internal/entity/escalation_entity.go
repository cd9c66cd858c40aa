package entity

import (
	"time"

	"github.com/google/uuid"
)

type Escalation struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	TurnId         uuid.UUID `gorm:"type:uuid"`
	Reason         string
	Priority       int
	Question       string
	AnswerContext  string
	DialogState    string
	Resolved       bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
