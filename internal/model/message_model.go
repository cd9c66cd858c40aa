package model

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role           string    `gorm:"type:varchar(16);not null"`
	Content        string    `gorm:"type:text"`
	Intent         string    `gorm:"type:varchar(64)"`
	Confidence     float64   `gorm:"default:0"`
	Sentiment      string    `gorm:"type:varchar(32)"`
	Outcome        string    `gorm:"type:varchar(32)"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
