package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

const verifySystemPrompt = `당신은 답변 검증기입니다. 근거 데이터와 생성된 답변이 주어집니다.
답변이 근거에 없는 정책을 언급하거나, 지원 대상·금액을 근거와 다르게 서술했는지 확인하세요.
문제가 있으면 수정한 답변 전체를, 문제가 없으면 원래 답변을 그대로 출력하세요.
"수정된 답변:" 같은 접두어나 설명은 절대 붙이지 마세요.`

// AnswerVerifier re-checks a synthesized answer against its evidence with a
// deterministic model call. Verification is best-effort: on any failure the
// original answer passes through unchanged.
type AnswerVerifier struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewAnswerVerifier(generator ports.TextGenerator, logger *slog.Logger) *AnswerVerifier {
	return &AnswerVerifier{generator: generator, logger: logger}
}

func (v *AnswerVerifier) Verify(ctx context.Context, decision domain.EvidenceDecision, answer string) string {
	var b strings.Builder
	b.WriteString("[근거 데이터]\n")
	switch decision.Kind {
	case domain.DecisionSufficient:
		for _, r := range decision.Internal {
			fmt.Fprintf(&b, "- %s | %s | %s | %s\n", r.Title, r.Region, r.AmountText, r.SummaryText)
		}
	case domain.DecisionFallback:
		for _, r := range decision.External {
			fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
		}
	default:
		return answer
	}
	fmt.Fprintf(&b, "\n[생성된 답변]\n%s", answer)

	checked, err := v.generator.GenerateDeterministic(ctx, verifySystemPrompt, b.String())
	if err != nil {
		v.logger.Warn("answer_verification_failed", "error", err)
		return answer
	}
	checked = strings.TrimSpace(checked)
	if checked == "" {
		return answer
	}
	return checked
}
