package contract

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	Update(ctx context.Context, conversation *entity.Conversation) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	UpdateDialogState(ctx context.Context, id uuid.UUID, state string) error

	AppendMessage(ctx context.Context, message *entity.Message) error
	FindMessages(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	CountMessages(ctx context.Context, specs ...specification.Specification) (int64, error)
}
