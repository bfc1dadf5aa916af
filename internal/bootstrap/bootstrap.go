package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/config"
	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
	"github.com/yjkwon-dev/policy-pilot/internal/core/usecase"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/cache"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/llm/openai"
	natsqueue "github.com/yjkwon-dev/policy-pilot/internal/infrastructure/queue/nats"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/repository/postgres"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/resilience"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/source/youthcenter"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/vector/qdrant"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/websearch/naver"
	"github.com/yjkwon-dev/policy-pilot/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.SyncQueue

	ChatUC      ports.ChatService
	SearchUC    ports.PolicySearchService
	RecommendUC ports.RecommendationService
	SyncUC      ports.PolicySyncProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	policyRepo := postgres.NewPolicyRepository(db)
	if err := policyRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure policy schema: %w", err)
	}
	chatRepo := postgres.NewChatRepository(db)
	if err := chatRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chat schema: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.QueueConfig(), logger),
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openai.New(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.OpenAIChatModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		Dimensions: cfg.EmbeddingDim,
		Logger:     logger,
	})

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	webSearcher := naver.New(cfg.NaverClientID, cfg.NaverClientSecret)
	feed := youthcenter.New(cfg.YouthCenterURL, cfg.YouthCenterAPIKey,
		resilience.NewExecutor(resilience.FeedConfig(), logger))
	history := cache.NewHistoryCache(cache.DefaultTTL, cfg.HistoryWindow, cache.DefaultCapacity, time.Now)

	extractor := usecase.NewRegionIntentExtractor(llmClient, logger)
	gate := usecase.NewSufficiencyGate(cfg.SufficiencyThreshold, llmClient, logger)
	synthesizer := usecase.NewAnswerSynthesizer(llmClient)
	verifier := usecase.NewAnswerVerifier(llmClient, logger)

	chatUC := usecase.NewChatUseCase(
		extractor,
		llmClient,
		vectorIndex,
		gate,
		webSearcher,
		synthesizer,
		verifier,
		policyRepo,
		chatRepo,
		history,
		domain.ChatLimits{
			CandidateLimit: cfg.CandidateLimit,
			HistoryWindow:  cfg.HistoryWindow,
			WebSearchLimit: cfg.WebSearchLimit,
			EmbeddingDim:   cfg.EmbeddingDim,
		},
		logger,
	)
	searchUC := usecase.NewSearchUseCase(llmClient, vectorIndex, policyRepo,
		cfg.ListingScoreThreshold, cfg.SearchOverFetch, logger)
	recommendUC := usecase.NewRecommendUseCase(llmClient, vectorIndex, policyRepo,
		cfg.RecommendOverFetch, cfg.EmbeddingDim, logger)
	syncUC := usecase.NewSyncUseCase(feed, llmClient, vectorIndex, policyRepo, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,

		ChatUC:      chatUC,
		SearchUC:    searchUC,
		RecommendUC: recommendUC,
		SyncUC:      syncUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
