package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      string
	DialogState string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;index"`
	Role           string
	Content        string
	Intent         string
	Confidence     float64
	Sentiment      string
	Outcome        string
	CreatedAt      time.Time
}

const (
	MessageRoleUser     = "user"
	MessageRoleBot      = "bot"
	MessageRoleOperator = "operator"
)
