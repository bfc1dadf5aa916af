package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

// DefaultSufficiencyThreshold is the similarity score below which internal
// evidence is considered insufficient and the external fallback is tried.
const DefaultSufficiencyThreshold = 0.7

const relevanceCheckSystemPrompt = `사용자 질문과 검색된 정책 제목 목록이 주어집니다.
제목들이 질문에 실제로 답이 되는 정책인지 판단하세요.
관련이 있으면 YES, 없으면 NO만 출력하세요. 다른 텍스트는 출력하지 마세요.`

// SufficiencyGate decides whether internal evidence adequately answers the
// query. The score threshold is necessary but not sufficient: a negative
// relevance verdict from the model overrides a passing score.
type SufficiencyGate struct {
	threshold float64
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewSufficiencyGate(threshold float64, generator ports.TextGenerator, logger *slog.Logger) *SufficiencyGate {
	if threshold <= 0 {
		threshold = DefaultSufficiencyThreshold
	}
	return &SufficiencyGate{threshold: threshold, generator: generator, logger: logger}
}

// Evaluate returns true when the evidence should be used as-is. Failures of
// the relevance sub-check are swallowed and the threshold decision stands.
func (g *SufficiencyGate) Evaluate(ctx context.Context, query string, evidence []domain.Candidate) bool {
	if len(evidence) == 0 {
		return false
	}
	if evidence[0].Score < g.threshold {
		return false
	}

	verdict, err := g.relevanceVerdict(ctx, query, evidence)
	if err != nil {
		g.logger.Warn("relevance_check_failed", "error", err)
		return true
	}
	if !verdict {
		g.logger.Info("relevance_check_overrode_score", "query", query)
	}
	return verdict
}

func (g *SufficiencyGate) relevanceVerdict(ctx context.Context, query string, evidence []domain.Candidate) (bool, error) {
	var b strings.Builder
	b.WriteString("질문: ")
	b.WriteString(query)
	b.WriteString("\n\n정책 제목 목록:\n")
	for _, c := range evidence {
		b.WriteString("- ")
		b.WriteString(c.Title)
		b.WriteString("\n")
	}

	raw, err := g.generator.Generate(ctx, relevanceCheckSystemPrompt, b.String())
	if err != nil {
		return false, err
	}

	answer := strings.ToUpper(strings.TrimSpace(raw))
	return !strings.HasPrefix(answer, "NO"), nil
}
