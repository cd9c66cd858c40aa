package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/pkg/embedding"
	"github.com/letya999/support-rag-sub001/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the background embedding worker: it receives document
// ids from the in-process bus, chunks the content, embeds every chunk and
// swaps the document's embeddings in one transaction.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "unmarshal failed, dropping message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	documentId, err := uuid.Parse(payload.DocumentId)
	if err != nil {
		cs.log.Error("consumer", "invalid document id, dropping message", map[string]interface{}{"document_id": payload.DocumentId})
		msg.Ack()
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		cs.log.Error("consumer", "fetch document failed", map[string]interface{}{"document_id": payload.DocumentId, "error": err.Error()})
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		cs.log.Warn("consumer", "document not found, dropping job", map[string]interface{}{"document_id": payload.DocumentId})
		msg.Ack() // Document deleted? Ack.
		return
	}

	content := document.Title + "\n\n" + document.Content

	// ChunkSize: 1500 chars with 200 overlap keeps chunks well inside the
	// embedding model context.
	chunks := utils.SplitText(content, 1500, 200)

	var newEmbeddings []*entity.DocumentEmbedding
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, "retrieval_document")
		if err != nil {
			cs.log.Error("consumer", "embedding failed", map[string]interface{}{
				"document_id": payload.DocumentId,
				"chunk":       i,
				"error":       err.Error(),
			})
			msg.Nack()
			return
		}

		newEmbeddings = append(newEmbeddings, &entity.DocumentEmbedding{
			Id:             uuid.New(),
			DocumentId:     document.Id,
			ChunkIndex:     i,
			ChunkText:      chunk,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		cs.log.Error("consumer", "begin transaction failed", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.DocumentEmbeddingRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		cs.log.Error("consumer", "delete old embeddings failed", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	if len(newEmbeddings) > 0 {
		if err := uow.DocumentEmbeddingRepository().CreateBulk(ctx, newEmbeddings); err != nil {
			cs.log.Error("consumer", "create embeddings failed", map[string]interface{}{"error": err.Error()})
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		cs.log.Error("consumer", "commit failed", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	cs.log.Info("consumer", "document embedded", map[string]interface{}{
		"document_id": payload.DocumentId,
		"chunks":      len(newEmbeddings),
	})
	msg.Ack()
}
