package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title               string
	Content             string
	Category            string
	ClarifyingQuestions []string
	RequiresHandoff     bool
	Metadata            map[string]interface{}
	CreatedAt           time.Time
	UpdatedAt           *time.Time
	DeletedAt           *time.Time
	IsDeleted           bool
}

type DocumentEmbedding struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId     uuid.UUID `gorm:"type:uuid;index"`
	ChunkIndex     int
	ChunkText      string
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
