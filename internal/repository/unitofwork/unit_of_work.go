package unitofwork

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository
	ConversationRepository() contract.ConversationRepository
	EscalationRepository() contract.EscalationRepository
}
