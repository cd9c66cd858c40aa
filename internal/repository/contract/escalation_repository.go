package contract

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"

	"github.com/google/uuid"
)

type EscalationRepository interface {
	Create(ctx context.Context, escalation *entity.Escalation) error
	MarkResolved(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Escalation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Escalation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
