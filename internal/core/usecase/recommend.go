package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

const (
	defaultRecommendTopK      = 5
	defaultRecommendOverFetch = 80
	unknownFieldLabel         = "알 수 없음"
)

var nonTextRe = regexp.MustCompile(`[^0-9A-Za-z가-힣%\-\s]`)

// RecommendUseCase turns a structured survey profile into a deterministic
// Korean query, runs prefiltered vector search, and groups multi-chunk hits
// to the best chunk per policy joined with full metadata.
type RecommendUseCase struct {
	embedder     ports.Embedder
	index        ports.VectorIndex
	policies     ports.PolicyStore
	overFetch    int
	embeddingDim int
	logger       *slog.Logger
}

func NewRecommendUseCase(embedder ports.Embedder, index ports.VectorIndex, policies ports.PolicyStore, overFetch, embeddingDim int, logger *slog.Logger) *RecommendUseCase {
	if overFetch <= 0 {
		overFetch = defaultRecommendOverFetch
	}
	return &RecommendUseCase{
		embedder:     embedder,
		index:        index,
		policies:     policies,
		overFetch:    overFetch,
		embeddingDim: embeddingDim,
		logger:       logger,
	}
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, profile domain.SurveyProfile, topK int) ([]domain.PolicyGroup, error) {
	if topK <= 0 {
		topK = defaultRecommendTopK
	}

	queryText := BuildProfileQuery(profile)
	vector, err := uc.embedder.Embed(ctx, queryText, ports.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed profile query: %w", err)
	}
	if uc.embeddingDim > 0 && len(vector) != uc.embeddingDim {
		return nil, domain.WrapError(domain.ErrProvider, "embed profile query",
			fmt.Errorf("embedding dim mismatch: got %d, expected %d", len(vector), uc.embeddingDim))
	}

	candidates, err := uc.index.Search(ctx, vector, uc.overFetch, profileFilter(profile))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	groups := GroupBestChunks(candidates, topK)

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.PolicyID)
	}
	policies, err := uc.policies.GetByPolicyIDs(ctx, ids)
	if err != nil {
		// Groups are still returned so result counts stay stable; display
		// must handle the nil policy.
		uc.logger.Warn("policy_metadata_lookup_failed", "error", err)
		policies = nil
	}
	for i := range groups {
		groups[i].Policy = policies[groups[i].PolicyID]
	}
	return groups, nil
}

// profileFilter pushes the region and interest constraints down to the
// index. A nationwide or empty region keeps recall by not constraining.
func profileFilter(profile domain.SurveyProfile) domain.SearchFilter {
	filter := domain.SearchFilter{}
	region := strings.TrimSpace(profile.Region)
	if region != "" && region != NationwideLabel {
		filter.Region = region
	}
	filter.Categories = cleanInterests(profile.Interests)
	return filter
}

// BuildProfileQuery renders the survey profile as the retrieval query text.
// The shape is deterministic so repeated surveys embed identically.
func BuildProfileQuery(profile domain.SurveyProfile) string {
	age := orUnknown(profile.AgeBracket)
	region := strings.TrimSpace(profile.Region)
	if region == "" {
		region = NationwideLabel
	}
	edu := orUnknown(profile.EducationLevel)
	eduStat := orUnknown(profile.EducationStatus)
	job := orUnknown(profile.JobStatus)
	income := orUnknown(profile.IncomeLevel)

	interests := cleanInterests(profile.Interests)
	interestText := unknownFieldLabel
	if len(interests) > 0 {
		interestText = strings.Join(interests, ", ")
	}

	return fmt.Sprintf(
		"사용자 상황 요약:\n"+
			"- 연령대: %s\n"+
			"- 거주 지역: %s\n"+
			"- 학력: %s (%s)\n"+
			"- 현재 상태: %s\n"+
			"- 소득 기준: %s\n"+
			"- 관심 분야: %s\n\n"+
			"추천 요청:\n"+
			"%s에 거주하는 %s 청년이 현재 %s 상태이며 %s %s이다. "+
			"소득은 %s 수준이고, %s 관련 지원을 우선으로 받을 수 있는 "+
			"%s 지역 정책 또는 전국 단위 청년 정책/지원사업을 추천해줘. "+
			"지역 제한이 있는 경우 반드시 %s 적용 가능 여부를 고려해줘.",
		age, region, edu, eduStat, job, income, interestText,
		region, age, job, edu, eduStat, income, interestText, region, region,
	)
}

func cleanInterests(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, interest := range raw {
		cleaned := stripDecorations(interest)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// stripDecorations removes emoji and punctuation from survey options so the
// tokens match category values in the index.
func stripDecorations(value string) string {
	cleaned := nonTextRe.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

func orUnknown(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownFieldLabel
	}
	return value
}
