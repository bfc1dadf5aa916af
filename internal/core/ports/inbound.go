package ports

import (
	"context"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

// ChatService is the inbound contract for the retrieval-and-answer pipeline.
type ChatService interface {
	Respond(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error)
}

// PolicySearchService is the inbound contract for keyword policy search.
type PolicySearchService interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, page, pageSize int) ([]domain.RankedResult, error)
}

// RecommendationService is the inbound contract for survey-based
// recommendations.
type RecommendationService interface {
	Recommend(ctx context.Context, profile domain.SurveyProfile, topK int) ([]domain.PolicyGroup, error)
}

// PolicySyncProcessor is the inbound contract for the async sync worker.
// SyncCategory reports how many policies it upserted.
type PolicySyncProcessor interface {
	SyncCategory(ctx context.Context, category string) (int, error)
}
