package service

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IEscalationService interface {
	GetPending(ctx context.Context, limit, offset int) ([]*dto.EscalationResponse, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

type escalationService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewEscalationService(uowFactory unitofwork.RepositoryFactory) IEscalationService {
	return &escalationService{uowFactory: uowFactory}
}

func (c *escalationService) GetPending(ctx context.Context, limit, offset int) ([]*dto.EscalationResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	escalations, err := uow.EscalationRepository().FindAll(ctx,
		specification.Unresolved{},
		specification.OrderBy{Field: "priority", Desc: false},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.EscalationResponse, len(escalations))
	for i, e := range escalations {
		result[i] = &dto.EscalationResponse{
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
		}
	}
	return result, nil
}

func (c *escalationService) Resolve(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.EscalationRepository().MarkResolved(ctx, id)
}
