package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

var (
	amountTextRe    = regexp.MustCompile(`(?:월|연|최대|최소)?\s*\d[\d,]*(?:\s*[~\-]\s*\d[\d,]*)?\s*(?:억|만원|천원|원)`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+|\n+`)
	queryTermRe     = regexp.MustCompile(`[0-9A-Za-z가-힣]+`)
)

const (
	summaryMaxRunes      = 220
	summaryFallbackRunes = 180
	summaryMinSentence   = 8
)

// BuildAmountText renders the display amount string from the structured
// min/max fields, falling back to a regex-extracted amount substring from
// free text when neither bound is usable.
func BuildAmountText(earn domain.Earn, fallbackTexts ...string) string {
	minAmt := earn.MinAmount
	maxAmt := earn.MaxAmount

	if maxAmt != nil {
		if *maxAmt > 0 {
			if minAmt != nil && *minAmt > 0 {
				return formatWon(*minAmt) + " ~ " + formatWon(*maxAmt)
			}
			return "최대 " + formatWon(*maxAmt)
		}
		if minAmt != nil && *minAmt > 0 {
			return "최소 " + formatWon(*minAmt)
		}
		return ""
	}

	if minAmt != nil && *minAmt > 0 {
		return "최소 " + formatWon(*minAmt)
	}

	texts := append([]string{earn.EtcContent}, fallbackTexts...)
	return extractAmountText(texts...)
}

func extractAmountText(texts ...string) string {
	for _, text := range texts {
		if text == "" {
			continue
		}
		if match := amountTextRe.FindString(text); match != "" {
			return strings.Join(strings.Fields(match), " ")
		}
	}
	return ""
}

func formatWon(amount int) string {
	return groupDigits(amount) + "원"
}

func groupDigits(n int) string {
	raw := strconv.Itoa(n)
	neg := strings.HasPrefix(raw, "-")
	if neg {
		raw = raw[1:]
	}
	var b strings.Builder
	for i, digit := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// QueryTerms extracts lowercase alphanumeric/hangul tokens of length >= 2.
func QueryTerms(query string) []string {
	if query == "" {
		return nil
	}
	var terms []string
	for _, token := range queryTermRe.FindAllString(strings.ToLower(query), -1) {
		if len([]rune(token)) >= 2 {
			terms = append(terms, token)
		}
	}
	return terms
}

// ExtractiveSummary picks the sentence scoring highest on query-term matches
// plus a money-amount bonus, optionally joined with the following sentence
// when the pair fits the display budget.
func ExtractiveSummary(text string, terms []string) string {
	normalized := normalizeText(text)
	if normalized == "" {
		return ""
	}

	var sentences []string
	for _, raw := range sentenceSplitRe.Split(normalized, -1) {
		s := strings.TrimSpace(raw)
		if len([]rune(s)) >= summaryMinSentence {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return truncateRunes(normalized, summaryFallbackRunes)
	}

	bestIdx := 0
	bestScore := -1
	for idx, sentence := range sentences {
		lower := strings.ToLower(sentence)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if amountTextRe.MatchString(sentence) {
			score++
		}
		if score > bestScore {
			bestScore = score
			bestIdx = idx
		}
	}

	summary := sentences[bestIdx]
	if bestIdx+1 < len(sentences) {
		next := sentences[bestIdx+1]
		if len([]rune(summary))+len([]rune(next)) <= summaryMaxRunes {
			summary = summary + ". " + next
		}
	}
	return truncateRunes(summary, summaryMaxRunes)
}

// SummaryText applies the summary source priority: best available of the
// provided texts, in order.
func SummaryText(terms []string, texts ...string) string {
	for _, text := range texts {
		if summary := ExtractiveSummary(text, terms); summary != "" {
			return summary
		}
	}
	return ""
}

func normalizeText(value string) string {
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", " ")
	return strings.Join(strings.Fields(value), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// EnrichCandidate derives the transport shape for one ranked candidate,
// attaching display fields and dropping raw chunk content.
func EnrichCandidate(c domain.Candidate, policy *domain.Policy, terms []string) domain.RankedResult {
	out := domain.RankedResult{
		PolicyID:   c.PolicyID,
		Title:      c.Title,
		Region:     c.Region,
		Category:   c.Category,
		Score:      c.Score,
		FinalScore: c.FinalScore,
	}
	if out.FinalScore == 0 {
		out.FinalScore = c.Score
	}

	if policy != nil {
		out.AmountText = BuildAmountText(policy.Earn, policy.SupportContent)
		out.SummaryText = SummaryText(terms, policy.Summary, c.Content, policy.SupportContent, policy.Content)
		if out.Title == "" {
			out.Title = policy.Name
		}
		if out.Category == "" {
			out.Category = policy.Category
		}
	} else {
		out.AmountText = extractAmountText(c.Content)
		out.SummaryText = SummaryText(terms, c.Content)
	}
	return out
}
