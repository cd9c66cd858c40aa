package main

import (
	"context"
	"log"
	"time"

	"github.com/letya999/support-rag-sub001/internal/config"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/pkg/database"
	"github.com/letya999/support-rag-sub001/pkg/embedding"
	"github.com/letya999/support-rag-sub001/pkg/utils"

	"github.com/google/uuid"
)

// Seeds a small knowledge base and embeds it synchronously, so a fresh
// environment can answer questions without going through the REST API.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	provider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	uowFactory := unitofwork.NewRepositoryFactory(db)
	ctx := context.Background()

	documents := []*entity.Document{
		{
			Id:       uuid.New(),
			Title:    "How to reset your password",
			Content:  "Open the login page and click 'Forgot password'. Enter the email address on your account and we will send a reset link. The link expires after 30 minutes. If you no longer have access to that email address, contact support so an operator can verify your identity.",
			Category: "account",
		},
		{
			Id:       uuid.New(),
			Title:    "Refund policy",
			Content:  "Refunds are available within 14 days of purchase for annual plans and within 48 hours for monthly plans. Refunds are issued to the original payment method and take 5-10 business days to appear. Partial refunds for unused time are handled case by case.",
			Category: "refund",
			ClarifyingQuestions: []string{
				"Which plan did you purchase (monthly or annual)?",
				"When did you make the purchase?",
			},
			RequiresHandoff: true,
		},
		{
			Id:       uuid.New(),
			Title:    "Troubleshooting sync errors",
			Content:  "Error SYNC-401 means your session token expired: sign out and back in. Error SYNC-503 means our sync service is degraded, check the status page. If sync stays stuck for more than an hour with no error code, clear the local cache from Settings > Advanced and retry.",
			Category: "technical",
			ClarifyingQuestions: []string{
				"What error code do you see, if any?",
			},
		},
		{
			Id:       uuid.New(),
			Title:    "Changing your subscription plan",
			Content:  "You can upgrade at any time from Settings > Billing; the price difference is prorated. Downgrades take effect at the end of the current billing period. Downgrading below your current storage usage blocks new uploads until you are under the limit.",
			Category: "billing",
		},
	}

	for _, doc := range documents {
		doc.CreatedAt = time.Now()

		uow := uowFactory.NewUnitOfWork(ctx)
		if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
			log.Fatalf("Error: Failed to create document %q: %v", doc.Title, err)
		}

		chunks := utils.SplitText(doc.Title+"\n\n"+doc.Content, 1500, 200)
		embeddings := make([]*entity.DocumentEmbedding, 0, len(chunks))
		for i, chunk := range chunks {
			res, err := provider.Generate(chunk, "retrieval_document")
			if err != nil {
				log.Fatalf("Error: Failed to embed chunk %d of %q: %v", i, doc.Title, err)
			}
			embeddings = append(embeddings, &entity.DocumentEmbedding{
				Id:             uuid.New(),
				DocumentId:     doc.Id,
				ChunkIndex:     i,
				ChunkText:      chunk,
				EmbeddingValue: res.Embedding.Values,
				CreatedAt:      time.Now(),
			})
		}
		if err := uow.DocumentEmbeddingRepository().CreateBulk(ctx, embeddings); err != nil {
			log.Fatalf("Error: Failed to store embeddings for %q: %v", doc.Title, err)
		}

		log.Printf("Seeded %q (%d chunks)", doc.Title, len(chunks))
	}

	log.Println("✅ Success: Knowledge base seeded.")
}
