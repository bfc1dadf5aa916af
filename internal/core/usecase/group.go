package usecase

import (
	"sort"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

// GroupBestChunks is the survey-path ranker: collapse multi-chunk hits to
// the best-scoring chunk per policy and keep the topK policies. The sort is
// performed here rather than assumed from the index, so grouping always
// picks the true best chunk.
func GroupBestChunks(candidates []domain.Candidate, topK int) []domain.PolicyGroup {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]domain.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	groups := make([]domain.PolicyGroup, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, c := range sorted {
		if _, ok := seen[c.PolicyID]; ok {
			continue
		}
		seen[c.PolicyID] = struct{}{}
		groups = append(groups, domain.PolicyGroup{
			PolicyID:  c.PolicyID,
			BestScore: c.Score,
			BestChunk: c.Content,
			ChunkID:   c.ChunkID,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].BestScore > groups[j].BestScore
	})

	if topK > 0 && len(groups) > topK {
		groups = groups[:topK]
	}
	return groups
}
