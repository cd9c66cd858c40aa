package bootstrap

import (
	"context"
	"log"
	"math"

	"github.com/letya999/support-rag-sub001/internal/config"
	"github.com/letya999/support-rag-sub001/internal/controller"
	"github.com/letya999/support-rag-sub001/internal/handler"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/registry"
	"github.com/letya999/support-rag-sub001/internal/repository/memory"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/internal/service"
	"github.com/letya999/support-rag-sub001/internal/websocket"
	"github.com/letya999/support-rag-sub001/pkg/answercache"
	"github.com/letya999/support-rag-sub001/pkg/clarify"
	"github.com/letya999/support-rag-sub001/pkg/dialog"
	"github.com/letya999/support-rag-sub001/pkg/embedding"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/llm/factory"
	"github.com/letya999/support-rag-sub001/pkg/llm/pool"
	"github.com/letya999/support-rag-sub001/pkg/nodes"

	pktNats "github.com/letya999/support-rag-sub001/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	AdminController    controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Operator Feed
	EscalationHandler *handler.EscalationHandler
	WebSocketHub      *websocket.Hub

	// Exposed for the simulate command and graceful shutdown.
	ChatService service.IChatService
	Registry    *registry.Registry
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	pooledLLM := pool.Wrap(llmProvider, cfg.Ai.LLMPoolSize)
	log.Printf("[INFO] Using LLM Provider: %s (%s), pool size %d", cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMPoolSize)

	// In-memory session storage with per-session locking
	sessionRepo := memory.NewSessionRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub for the operator feed
	wsLogger := logger.NewIsolatedLogger("logs/operator.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Pipeline
	// The rules and retrieval getters close over reg, which is assigned
	// below; the executor only calls them per turn, after Load succeeded.
	var reg *registry.Registry

	nodeTable := graph.NewNodeRegistry()
	nodeTable.Register(nodes.NewClassifyNode(pooledLLM, sysLogger))
	nodeTable.Register(nodes.NewSentimentNode(pooledLLM, sysLogger))
	nodeTable.Register(nodes.NewVectorSearchNode(embeddingProvider, uowFactory, func() nodes.RetrievalConfig { return reg.Retrieval() }, sysLogger))
	nodeTable.Register(nodes.NewLexicalSearchNode(uowFactory, func() nodes.RetrievalConfig { return reg.Retrieval() }, sysLogger))
	nodeTable.Register(nodes.NewFusionNode(func() nodes.RetrievalConfig { return reg.Retrieval() }, sysLogger))
	nodeTable.Register(nodes.NewRulesNode(func() *dialog.Engine { return reg.Engine() }, sysLogger))
	nodeTable.Register(nodes.NewGenerateNode(pooledLLM, sysLogger))
	nodeTable.Register(nodes.NewValidateNode(pooledLLM, sysLogger))

	reg = registry.New(cfg.Pipeline.Path, nodeTable, registry.Predicates(), sysLogger)
	if err := reg.Load(); err != nil {
		log.Fatalf("[FATAL] Failed to load pipeline config %s: %v", cfg.Pipeline.Path, err)
	}

	// 5. Answer Cache
	var cacheBackend answercache.Backend
	if cfg.Cache.Backend == "redis" {
		cacheBackend = answercache.NewRedisBackend(rdb)
		log.Printf("[INFO] Using Answer Cache Backend: REDIS")
	} else {
		cacheBackend = answercache.NewMemoryBackend(reg.Cache().CacheOptions().Capacity)
		log.Printf("[INFO] Using Answer Cache Backend: MEMORY")
	}
	answerCache := answercache.New(
		cacheBackend,
		embeddingScorer(embeddingProvider),
		reg.Cache().CacheOptions(),
		sysLogger,
	)

	clarifyFlow := clarify.NewFlow(sysLogger)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Pipeline.EmbedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Pipeline.EmbedTopic,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)

	documentService := service.NewDocumentService(uowFactory, publisherService)
	escalationService := service.NewEscalationService(uowFactory)
	chatService := service.NewChatService(
		uowFactory,
		sessionRepo,
		reg,
		nodeTable,
		answerCache,
		clarifyFlow,
		natsPub,
		sysLogger,
	)

	// 7. Operator Feed (NATS -> WebSocket relay)
	escalationHandler := handler.NewEscalationHandler(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		escalationHandler.Start()
	}

	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		AdminController:    controller.NewAdminController(escalationService, reg, natsPub, sysLogger),

		ConsumerService: consumerService,

		EscalationHandler: escalationHandler,
		WebSocketHub:      wsHub,

		ChatService: chatService,
		Registry:    reg,
	}
}

// embeddingScorer compares two questions by cosine similarity of their
// embeddings. Used by the cache's near-duplicate lookup.
func embeddingScorer(provider embedding.EmbeddingProvider) answercache.Scorer {
	return func(ctx context.Context, a, b string) (float64, error) {
		ea, err := provider.Generate(a, "retrieval_query")
		if err != nil {
			return 0, err
		}
		eb, err := provider.Generate(b, "retrieval_query")
		if err != nil {
			return 0, err
		}
		return cosine(ea.Embedding.Values, eb.Embedding.Values), nil
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
