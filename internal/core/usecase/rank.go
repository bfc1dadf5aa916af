package usecase

import (
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

// EvidenceCap bounds the merged evidence set handed to synthesis.
const EvidenceCap = 5

// NationwideLabel is the context label used when no target region matched.
const NationwideLabel = "전국"

// nationwideMarkers tag policies that apply regardless of user location.
var nationwideMarkers = []string{"전국", "중앙", "국가"}

// MergeByRegionPriority is the chat-path ranker: deduplicate by title
// (first occurrence wins, so callers must pass candidates already sorted by
// relevance), partition into region-specific vs nationwide, and merge with
// region-specific first, capped at EvidenceCap. Candidates matching neither
// bucket are dropped.
func MergeByRegionPriority(targetRegions []string, candidates []domain.Candidate) ([]domain.Candidate, string) {
	var regionSpecific, nationwide []domain.Candidate
	seenTitles := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if _, seen := seenTitles[title]; seen {
			continue
		}
		seenTitles[title] = struct{}{}

		switch {
		case len(targetRegions) > 0 && matchesRegion(c, targetRegions):
			regionSpecific = append(regionSpecific, c)
		case isNationwide(c.Region):
			nationwide = append(nationwide, c)
		}
	}

	merged := append(regionSpecific, nationwide...)
	if len(merged) > EvidenceCap {
		merged = merged[:EvidenceCap]
	}

	label := NationwideLabel
	if len(regionSpecific) > 0 {
		label = strings.Join(targetRegions, ", ")
	}
	return merged, label
}

// matchesRegion reproduces the reference substring test against both the
// region tag and the title. Short region names can false-positive inside
// unrelated words; the behavior is kept as-is.
func matchesRegion(c domain.Candidate, targetRegions []string) bool {
	for _, region := range targetRegions {
		if region == "" {
			continue
		}
		if strings.Contains(c.Region, region) || strings.Contains(c.Title, region) {
			return true
		}
	}
	return false
}

func isNationwide(region string) bool {
	for _, marker := range nationwideMarkers {
		if strings.Contains(region, marker) {
			return true
		}
	}
	return false
}
