package model

import (
	"time"

	"github.com/google/uuid"
)

type Escalation struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	TurnId         uuid.UUID `gorm:"type:uuid;not null"`
	Reason         string    `gorm:"type:varchar(64);not null"`
	Priority       int       `gorm:"not null"`
	Question       string    `gorm:"type:text"`
	AnswerContext  string    `gorm:"type:text"`
	DialogState    string    `gorm:"type:varchar(32)"`
	Resolved       bool      `gorm:"default:false;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Escalation) TableName() string {
	return "escalations"
}
