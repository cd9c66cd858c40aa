package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByConversationId filters rows belonging to one conversation
type ByConversationId struct {
	ConversationId uuid.UUID
}

func (s ByConversationId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationId)
}

// ByCategory filters documents by knowledge-base category
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category = ?", s.Category)
}

// Unresolved filters escalations still waiting for an operator
type Unresolved struct{}

func (s Unresolved) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("resolved = false")
}
