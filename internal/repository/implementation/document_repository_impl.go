package implementation

import (
	"context"
	"errors"

	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/mapper"
	"github.com/letya999/support-rag-sub001/internal/model"
	"github.com/letya999/support-rag-sub001/internal/repository/contract"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, document *entity.Document) error {
	m := r.mapper.ToModel(document)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, document *entity.Document) error {
	m := r.mapper.ToModel(document)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Document, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Document{}).Count(&count).Error
	return count, err
}

// SearchKeywordWithScore ranks documents with Postgres full-text search.
// ts_rank is unbounded, so scores are normalized with rank/(rank+1) to fit
// the same 0..1 scale the vector side produces.
func (r *DocumentRepositoryImpl) SearchKeywordWithScore(ctx context.Context, query string, limit int, threshold float64) ([]*contract.ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.Document
		Score float64
	}
	var results []result

	rank := "ts_rank(to_tsvector('simple', title || ' ' || content), plainto_tsquery('simple', ?))"

	err := r.db.WithContext(ctx).
		Table("documents").
		Select("documents.*, "+rank+" / ("+rank+" + 1) as score", query, query).
		Where("to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', ?)", query).
		Where("documents.deleted_at IS NULL").
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocument, 0, len(results))
	for i := range results {
		if results[i].Score < threshold {
			continue
		}
		scored = append(scored, &contract.ScoredDocument{
			Document: r.mapper.ToEntity(&results[i].Document),
			Score:    results[i].Score,
		})
	}
	return scored, nil
}
