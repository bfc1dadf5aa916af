package ports

import (
	"context"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

// EmbeddingRole selects the model-side task type for an embedding call.
// It affects provider configuration only, never the vector shape.
type EmbeddingRole string

const (
	RoleQuery    EmbeddingRole = "query"
	RoleDocument EmbeddingRole = "document"
)

// Embedder converts text into fixed-dimension vectors. Failures wrap
// domain.ErrProvider and are never retried inside the pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string, role EmbeddingRole) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, role EmbeddingRole) ([][]float32, error)
}

// VectorIndex runs approximate nearest-neighbor search over policy chunks,
// ordered by descending similarity. Failures wrap domain.ErrIndexUnavailable
// and are fatal for the request.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topN int, filter domain.SearchFilter) ([]domain.Candidate, error)
	UpsertChunks(ctx context.Context, policy *domain.Policy, chunks []string, vectors [][]float32) error
}

// TextGenerator is the stateless generative-model provider. JSON calls
// request strict JSON output; Deterministic pins temperature to zero.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	GenerateJSON(ctx context.Context, system, user string) (string, error)
	GenerateDeterministic(ctx context.Context, system, user string) (string, error)
}

// WebSearcher is the last-resort external evidence source.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error)
}

// PolicyStore reads and writes policy metadata.
type PolicyStore interface {
	GetByPolicyIDs(ctx context.Context, policyIDs []string) (map[string]*domain.Policy, error)
	Upsert(ctx context.Context, policy *domain.Policy) error
}

// ChatArchive durably persists chat sessions and messages. It is a
// collaborator: the pipeline itself performs no writes.
type ChatArchive interface {
	EnsureSession(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error)
	AppendMessage(ctx context.Context, msg domain.StoredMessage) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
}

// HistoryCache is the bounded in-memory recent-message window per session.
type HistoryCache interface {
	Recent(sessionID string) ([]domain.ChatMessage, bool)
	Append(sessionID, role, content string)
}

// SyncQueue carries policy-sync requests from the API to the worker.
type SyncQueue interface {
	PublishSyncRequested(ctx context.Context, category string) error
	SubscribeSyncRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// PolicyFeed fetches raw policy records from the upstream government API.
// This is the only call in the system with automatic retry.
type PolicyFeed interface {
	FetchPage(ctx context.Context, category string, page, pageSize int) ([]domain.Policy, error)
}
