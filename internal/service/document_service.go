package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	GetAll(ctx context.Context) ([]*dto.ShowDocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
	}
}

func (c *documentService) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document := &entity.Document{
		Id:                  uuid.New(),
		Title:               req.Title,
		Content:             req.Content,
		Category:            req.Category,
		ClarifyingQuestions: req.ClarifyingQuestions,
		RequiresHandoff:     req.RequiresHandoff,
		Metadata:            req.Metadata,
		CreatedAt:           time.Now(),
	}
	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		return nil, err
	}

	// Queue the embedding job; the consumer picks it up asynchronously.
	payload, err := json.Marshal(dto.EmbedDocumentMessage{DocumentId: document.Id.String()})
	if err != nil {
		return nil, err
	}
	if err := c.publisherService.Publish(ctx, payload); err != nil {
		return nil, err
	}

	return &dto.CreateDocumentResponse{Id: document.Id}, nil
}

func (c *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}
	return toDocumentResponse(document), nil
}

func (c *documentService) GetAll(ctx context.Context) ([]*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowDocumentResponse, len(documents))
	for i, d := range documents {
		result[i] = toDocumentResponse(d)
	}
	return result, nil
}

func (c *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentEmbeddingRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	return uow.Commit()
}

func toDocumentResponse(d *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:                  d.Id,
		Title:               d.Title,
		Content:             d.Content,
		Category:            d.Category,
		ClarifyingQuestions: d.ClarifyingQuestions,
		RequiresHandoff:     d.RequiresHandoff,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}
