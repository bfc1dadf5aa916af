package usecase

import (
	"testing"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

func TestMergeByRegionPriorityRegionFirst(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "안산시 청년 월세 지원", Region: "안산", Score: 0.9},
		{PolicyID: "p-2", Title: "청년 도약계좌", Region: "전국", Score: 0.6},
	}

	merged, label := MergeByRegionPriority([]string{"안산"}, candidates)
	if len(merged) != 2 {
		t.Fatalf("expected both candidates in evidence, got %d", len(merged))
	}
	if merged[0].PolicyID != "p-1" {
		t.Fatalf("expected region-specific candidate first, got %s", merged[0].PolicyID)
	}
	if label != "안산" {
		t.Fatalf("expected context label 안산, got %q", label)
	}
}

func TestMergeByRegionPriorityDedupFirstWins(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "청년 월세 지원", Region: "전국", Score: 0.9},
		{PolicyID: "p-2", Title: "청년 월세 지원", Region: "전국", Score: 0.95},
	}

	merged, _ := MergeByRegionPriority(nil, candidates)
	if len(merged) != 1 {
		t.Fatalf("expected duplicate title dropped, got %d", len(merged))
	}
	if merged[0].PolicyID != "p-1" {
		t.Fatalf("first occurrence must win, got %s", merged[0].PolicyID)
	}
}

func TestMergeByRegionPriorityIdempotent(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "안산 청년 정책", Region: "안산", Score: 0.9},
		{PolicyID: "p-2", Title: "전국 청년 정책", Region: "전국", Score: 0.8},
		{PolicyID: "p-3", Title: "부산 청년 정책", Region: "부산", Score: 0.7},
	}

	once, _ := MergeByRegionPriority([]string{"안산"}, candidates)
	twice, _ := MergeByRegionPriority([]string{"안산"}, once)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].PolicyID != twice[i].PolicyID {
			t.Fatalf("merge not idempotent at %d: %s vs %s", i, once[i].PolicyID, twice[i].PolicyID)
		}
	}
}

func TestMergeByRegionPriorityEvidenceCap(t *testing.T) {
	var candidates []domain.Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, domain.Candidate{
			PolicyID: string(rune('a' + i)),
			Title:    "정책 " + string(rune('a'+i)),
			Region:   "전국",
			Score:    1.0 - float64(i)*0.05,
		})
	}

	merged, _ := MergeByRegionPriority(nil, candidates)
	if len(merged) != EvidenceCap {
		t.Fatalf("expected evidence capped at %d, got %d", EvidenceCap, len(merged))
	}
}

func TestMergeByRegionPriorityDropsUnmatched(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "부산 청년 정책", Region: "부산", Score: 0.9},
	}

	merged, label := MergeByRegionPriority([]string{"안산"}, candidates)
	if len(merged) != 0 {
		t.Fatalf("expected neither-bucket candidate dropped, got %d", len(merged))
	}
	if label != NationwideLabel {
		t.Fatalf("expected nationwide label without region hits, got %q", label)
	}
}

func TestMergeByRegionPriorityTitleMatch(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "안산시 청년 지원사업", Region: "경기", Score: 0.9},
	}

	merged, _ := MergeByRegionPriority([]string{"안산"}, candidates)
	if len(merged) != 1 {
		t.Fatalf("expected title substring to count as region match")
	}
}

func TestMergeByRegionPriorityNationwideMarkers(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: "p-1", Title: "국가 장학금", Region: "중앙부처", Score: 0.9},
	}

	merged, _ := MergeByRegionPriority(nil, candidates)
	if len(merged) != 1 {
		t.Fatalf("expected 중앙 marker to bucket as nationwide")
	}
}
