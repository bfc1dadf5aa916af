package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

const (
	syncPageSize = 100
	syncMaxPages = 50
)

// SyncUseCase pulls policy records from the upstream feed page by page,
// embeds their document text, and upserts both the metadata store and the
// vector index. Runs on the worker, triggered by queue messages.
type SyncUseCase struct {
	feed     ports.PolicyFeed
	embedder ports.Embedder
	index    ports.VectorIndex
	policies ports.PolicyStore
	logger   *slog.Logger
}

func NewSyncUseCase(feed ports.PolicyFeed, embedder ports.Embedder, index ports.VectorIndex, policies ports.PolicyStore, logger *slog.Logger) *SyncUseCase {
	return &SyncUseCase{
		feed:     feed,
		embedder: embedder,
		index:    index,
		policies: policies,
		logger:   logger,
	}
}

func (uc *SyncUseCase) SyncCategory(ctx context.Context, category string) (int, error) {
	total := 0
	for page := 1; page <= syncMaxPages; page++ {
		batch, err := uc.feed.FetchPage(ctx, category, page, syncPageSize)
		if err != nil {
			return total, fmt.Errorf("fetch policy page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := uc.indexBatch(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)

		if len(batch) < syncPageSize {
			break
		}
	}

	uc.logger.Info("policy_sync_completed", "category", category, "policies", total)
	return total, nil
}

func (uc *SyncUseCase) indexBatch(ctx context.Context, batch []domain.Policy) error {
	texts := make([]string, 0, len(batch))
	for i := range batch {
		texts = append(texts, policyDocumentText(&batch[i]))
	}

	vectors, err := uc.embedder.EmbedBatch(ctx, texts, ports.RoleDocument)
	if err != nil {
		return fmt.Errorf("embed policy batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return domain.WrapError(domain.ErrProvider, "embed policy batch",
			fmt.Errorf("vector count mismatch: got %d, expected %d", len(vectors), len(batch)))
	}

	for i := range batch {
		policy := &batch[i]
		if err := uc.policies.Upsert(ctx, policy); err != nil {
			return fmt.Errorf("upsert policy %s: %w", policy.PolicyID, err)
		}
		if err := uc.index.UpsertChunks(ctx, policy, []string{texts[i]}, [][]float32{vectors[i]}); err != nil {
			return fmt.Errorf("index policy %s: %w", policy.PolicyID, err)
		}
	}
	return nil
}

// policyDocumentText is the canonical text embedded per policy. It must stay
// stable across syncs so re-embedding is deterministic.
func policyDocumentText(p *domain.Policy) string {
	parts := []string{p.Name, p.Summary, p.SupportContent, p.Content}
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(part))
		}
	}
	return strings.Join(nonEmpty, "\n")
}
