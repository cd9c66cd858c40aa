package mapper

import (
	"time"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/model"
)

type EscalationMapper struct{}

func NewEscalationMapper() *EscalationMapper {
	return &EscalationMapper{}
}

func (m *EscalationMapper) ToEntity(e *model.Escalation) *entity.Escalation {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.Escalation{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		TurnId:         e.TurnId,
		Reason:         e.Reason,
		Priority:       e.Priority,
		Question:       e.Question,
		AnswerContext:  e.AnswerContext,
		DialogState:    e.DialogState,
		Resolved:       e.Resolved,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *EscalationMapper) ToModel(e *entity.Escalation) *model.Escalation {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.Escalation{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		TurnId:         e.TurnId,
		Reason:         e.Reason,
		Priority:       e.Priority,
		Question:       e.Question,
		AnswerContext:  e.AnswerContext,
		DialogState:    e.DialogState,
		Resolved:       e.Resolved,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}
