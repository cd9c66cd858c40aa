package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id                  uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title               string                      `gorm:"type:varchar(255);not null"`
	Content             string                      `gorm:"type:text"`
	Category            string                      `gorm:"type:varchar(64);index"`
	ClarifyingQuestions datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	RequiresHandoff     bool                        `gorm:"default:false"`
	Metadata            datatypes.JSON              `gorm:"type:jsonb"`
	CreatedAt           time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt              `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
