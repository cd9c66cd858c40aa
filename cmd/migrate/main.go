package main

import (
	"log"
	"os"

	"github.com/letya999/support-rag-sub001/internal/model"
	"github.com/letya999/support-rag-sub001/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Document{},
		&model.DocumentEmbedding{},
		&model.Conversation{},
		&model.Message{},
		&model.Escalation{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Indexes GORM can't express
	log.Println("Step 3: Creating Search Indexes...")

	postMigrationSQL := []string{
		// Approximate nearest-neighbour index for the vector branch.
		`CREATE INDEX IF NOT EXISTS idx_document_embeddings_embedding
		 ON document_embeddings USING hnsw (embedding_value vector_cosine_ops);`,

		// Full-text index for the lexical branch. Mirrors the expression
		// used by the keyword search query.
		`CREATE INDEX IF NOT EXISTS idx_documents_fulltext
		 ON documents USING gin (to_tsvector('simple', title || ' ' || content));`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		 ON messages (conversation_id, created_at);`,

		`CREATE INDEX IF NOT EXISTS idx_escalations_unresolved
		 ON escalations (priority) WHERE resolved = false;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
