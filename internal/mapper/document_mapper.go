package mapper

import (
	"encoding/json"
	"time"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(d.Metadata) > 0 {
		_ = json.Unmarshal(d.Metadata, &metadata)
	}

	return &entity.Document{
		Id:                  d.Id,
		Title:               d.Title,
		Content:             d.Content,
		Category:            d.Category,
		ClarifyingQuestions: []string(d.ClarifyingQuestions),
		RequiresHandoff:     d.RequiresHandoff,
		Metadata:            metadata,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
		IsDeleted:           d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	var metadata datatypes.JSON
	if len(d.Metadata) > 0 {
		raw, err := json.Marshal(d.Metadata)
		if err == nil {
			metadata = raw
		}
	}

	return &model.Document{
		Id:                  d.Id,
		Title:               d.Title,
		Content:             d.Content,
		Category:            d.Category,
		ClarifyingQuestions: datatypes.NewJSONSlice(d.ClarifyingQuestions),
		RequiresHandoff:     d.RequiresHandoff,
		Metadata:            metadata,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           updatedAt,
		DeletedAt:           deletedAt,
	}
}
