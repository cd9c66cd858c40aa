package contract

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocument wraps a Document with its lexical relevance score
type ScoredDocument struct {
	Document *entity.Document
	Score    float64 // normalized 0.0 to 1.0
}

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	Update(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchKeywordWithScore runs a full-text search over title and content,
	// returning documents ranked by ts_rank and filtered by threshold.
	SearchKeywordWithScore(ctx context.Context, query string, limit int, threshold float64) ([]*ScoredDocument, error)
}
