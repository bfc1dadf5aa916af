package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

// DeclineMessage is the fixed response when neither internal nor external
// evidence is available. It is returned verbatim, never synthesized.
const DeclineMessage = "죄송합니다. 관련된 정책 정보를 찾지 못했습니다. 지역이나 지원 분야를 조금 더 구체적으로 알려주시면 다시 찾아볼게요."

// answerFormatInstruction is the fixed output contract assumed by the
// downstream renderer. Do not alter the heading level or bullet fields.
const answerFormatInstruction = `위 데이터 중 가장 적합한 정책을 최대 2개 골라 다음 형식으로 요약하세요.
### [정책명]
* 👤 대상: 조건
* 🎁 혜택: 상세내용
* 📅 신청: 방법`

const externalSourceLine = "※ 출처: 온라인 통합검색 결과"

// AnswerSynthesizer composes the grounded answer from the chosen evidence
// set, with a role instruction that varies by evidence source.
type AnswerSynthesizer struct {
	generator ports.TextGenerator
}

func NewAnswerSynthesizer(generator ports.TextGenerator) *AnswerSynthesizer {
	return &AnswerSynthesizer{generator: generator}
}

// Synthesize dispatches on the evidence decision. DecisionNoData never
// reaches the model: the fixed decline message is returned directly.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, query string, history []domain.ChatMessage, decision domain.EvidenceDecision) (string, error) {
	switch decision.Kind {
	case domain.DecisionSufficient:
		return s.fromInternal(ctx, query, history, decision)
	case domain.DecisionFallback:
		return s.fromExternal(ctx, query, decision)
	case domain.DecisionNoData:
		return DeclineMessage, nil
	default:
		return "", fmt.Errorf("unsupported evidence decision kind: %d", decision.Kind)
	}
}

func (s *AnswerSynthesizer) fromInternal(ctx context.Context, query string, history []domain.ChatMessage, decision domain.EvidenceDecision) (string, error) {
	system := fmt.Sprintf(
		"당신은 %s 정책 요약 전문가입니다. 제공된 데이터만을 기반으로 간결하게 답변하세요. 출처나 검색 방법은 언급하지 마세요.",
		decision.ContextLabel,
	)

	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("[이전 대화]\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("[참고 데이터]\n")
	for _, r := range decision.Internal {
		fmt.Fprintf(&b, "- 정책명: %s | 지역: %s", r.Title, r.Region)
		if r.AmountText != "" {
			fmt.Fprintf(&b, " | 지원금액: %s", r.AmountText)
		}
		if r.SummaryText != "" {
			fmt.Fprintf(&b, " | 내용: %s", r.SummaryText)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n질문: %s\n\n%s", query, answerFormatInstruction)

	answer, err := s.generator.Generate(ctx, system, b.String())
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "synthesize answer", err)
	}
	return answer, nil
}

func (s *AnswerSynthesizer) fromExternal(ctx context.Context, query string, decision domain.EvidenceDecision) (string, error) {
	system := fmt.Sprintf(`당신은 %s 정책 안내 도우미입니다. 아래 웹 검색 결과만을 근거로 답변하세요.
검색 결과에서 구체적인 정책명을 확인할 수 없으면 해당 정책을 추천하지 말고 확인된 내용만 안내하세요.
답변 마지막 줄에 반드시 "%s"를 그대로 붙이세요.`, decision.ContextLabel, externalSourceLine)

	var b strings.Builder
	b.WriteString("[웹 검색 결과]\n")
	for _, r := range decision.External {
		fmt.Fprintf(&b, "- %s (%s)\n  %s\n", r.Title, r.Link, r.Snippet)
	}
	fmt.Fprintf(&b, "\n질문: %s\n\n%s", query, answerFormatInstruction)

	answer, err := s.generator.Generate(ctx, system, b.String())
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "synthesize fallback answer", err)
	}
	return answer, nil
}
