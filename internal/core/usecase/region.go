package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

const regionExtractSystemPrompt = `당신은 청년 정책 상담 서비스의 질의 분류기입니다.
사용자 질문을 분석해 반드시 아래 JSON 형식으로만 답하세요.
{"is_in_domain": true/false, "regions": ["지역명", ...], "reason": "판단 근거"}

- is_in_domain: 질문이 정부 정책, 취업 지원, 복지 혜택과 관련되면 true.
- regions: 질문에 언급된 모든 지역명. 시/군/구 단위만 언급되면 해당 지역이 속한
  도나 특별시/광역시를 함께 포함하세요. (예: '안산' -> ["경기", "안산"])
- 지역 관련 키워드가 전혀 없으면 regions는 ["전국"]으로 답하세요.
JSON 외의 텍스트는 출력하지 마세요.`

// RegionIntentExtractor classifies whether a query is in-domain and pulls
// candidate region tokens out of it via one strict-JSON model call.
type RegionIntentExtractor struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewRegionIntentExtractor(generator ports.TextGenerator, logger *slog.Logger) *RegionIntentExtractor {
	return &RegionIntentExtractor{generator: generator, logger: logger}
}

// Extract never fails the pipeline: any call or parse error degrades to an
// in-domain, nationwide-scope intent.
func (e *RegionIntentExtractor) Extract(ctx context.Context, query string) domain.RegionIntent {
	failOpen := domain.RegionIntent{InDomain: true, Regions: []string{}}

	raw, err := e.generator.GenerateJSON(ctx, regionExtractSystemPrompt, query)
	if err != nil {
		e.logger.Warn("region_extract_failed", "error", err)
		return failOpen
	}

	var intent domain.RegionIntent
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &intent); err != nil {
		e.logger.Warn("region_extract_parse_failed", "error", err, "raw", raw)
		return failOpen
	}

	intent.Regions = NormalizeRegions(intent.Regions)
	return intent
}

// NormalizeRegions strips administrative suffixes and removes the nationwide
// marker: "no geographic constraint" is represented as absence, never as a
// region token.
func NormalizeRegions(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, region := range raw {
		region = strings.TrimSpace(region)
		if region == "" || strings.Contains(region, NationwideLabel) {
			continue
		}
		region = strings.TrimSuffix(region, "시")
		region = strings.TrimSuffix(region, "도")
		if region == "" {
			continue
		}
		if _, ok := seen[region]; ok {
			continue
		}
		seen[region] = struct{}{}
		out = append(out, region)
	}
	return out
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
