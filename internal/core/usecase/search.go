package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

const (
	// DefaultListingScoreThreshold drops weak hits from the keyword search
	// listing. It is stricter than the chat sufficiency threshold because
	// listings have no fallback path.
	DefaultListingScoreThreshold = 0.855

	// textMatchBonus is added on top of the raw similarity when the query
	// appears verbatim in the policy name or keywords. The raw score is
	// never mutated; the boost lives in FinalScore only.
	textMatchBonus = 0.5

	maxPageSize = 100
)

// SearchUseCase is the keyword policy search: filtered vector search with a
// listing threshold, an additive text-match boost, and display enrichment.
type SearchUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	policies  ports.PolicyStore
	threshold float64
	overFetch int
	logger    *slog.Logger
}

func NewSearchUseCase(embedder ports.Embedder, index ports.VectorIndex, policies ports.PolicyStore, threshold float64, overFetch int, logger *slog.Logger) *SearchUseCase {
	if threshold <= 0 {
		threshold = DefaultListingScoreThreshold
	}
	if overFetch <= 0 {
		overFetch = 100
	}
	return &SearchUseCase{
		embedder:  embedder,
		index:     index,
		policies:  policies,
		threshold: threshold,
		overFetch: overFetch,
		logger:    logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query string, filter domain.SearchFilter, page, pageSize int) ([]domain.RankedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "policy search", fmt.Errorf("query is required"))
	}
	page, pageSize = normalizePage(page, pageSize)

	vector, err := uc.embedder.Embed(ctx, query, ports.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := uc.index.Search(ctx, vector, uc.overFetch, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	scored := make([]domain.Candidate, 0, len(candidates))
	queryLower := strings.ToLower(query)
	for _, c := range candidates {
		if c.Score < uc.threshold {
			continue
		}
		c.FinalScore = c.Score
		if strings.Contains(strings.ToLower(c.Title), queryLower) ||
			strings.Contains(strings.ToLower(c.Keywords), queryLower) {
			c.FinalScore += textMatchBonus
		}
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	start := (page - 1) * pageSize
	if start >= len(scored) {
		return []domain.RankedResult{}, nil
	}
	end := start + pageSize
	if end > len(scored) {
		end = len(scored)
	}
	pageItems := scored[start:end]

	ids := make([]string, 0, len(pageItems))
	for _, c := range pageItems {
		ids = append(ids, c.PolicyID)
	}
	policies, err := uc.policies.GetByPolicyIDs(ctx, ids)
	if err != nil {
		uc.logger.Warn("policy_metadata_lookup_failed", "error", err)
		policies = nil
	}

	terms := QueryTerms(query)
	out := make([]domain.RankedResult, 0, len(pageItems))
	for _, c := range pageItems {
		out = append(out, EnrichCandidate(c, policies[c.PolicyID], terms))
	}
	return out, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
