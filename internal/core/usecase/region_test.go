package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type generatorFake struct {
	text     string
	jsonText string
	detText  string
	err      error

	lastSystem string
	lastUser   string
}

func (f *generatorFake) Generate(_ context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.text, f.err
}

func (f *generatorFake) GenerateJSON(_ context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.jsonText, f.err
}

func (f *generatorFake) GenerateDeterministic(_ context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.detText, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegionExtractorNormalizesSuffixes(t *testing.T) {
	gen := &generatorFake{jsonText: `{"is_in_domain": true, "regions": ["경기도", "안산시"], "reason": "지역 언급"}`}
	extractor := NewRegionIntentExtractor(gen, discardLogger())

	intent := extractor.Extract(context.Background(), "안산 청년 정책")
	if !intent.InDomain {
		t.Fatalf("expected in-domain intent")
	}
	if len(intent.Regions) != 2 || intent.Regions[0] != "경기" || intent.Regions[1] != "안산" {
		t.Fatalf("expected suffix-stripped regions, got %v", intent.Regions)
	}
}

func TestRegionExtractorNeverReturnsNationwide(t *testing.T) {
	gen := &generatorFake{jsonText: `{"is_in_domain": true, "regions": ["전국"], "reason": "지역 없음"}`}
	extractor := NewRegionIntentExtractor(gen, discardLogger())

	intent := extractor.Extract(context.Background(), "청년 지원금 알려줘")
	if len(intent.Regions) != 0 {
		t.Fatalf("전국 must normalize to empty regions, got %v", intent.Regions)
	}
}

func TestRegionExtractorFailOpenOnCallError(t *testing.T) {
	gen := &generatorFake{err: errors.New("model down")}
	extractor := NewRegionIntentExtractor(gen, discardLogger())

	intent := extractor.Extract(context.Background(), "서울 청년 수당")
	if !intent.InDomain {
		t.Fatalf("call failure must degrade to in-domain")
	}
	if len(intent.Regions) != 0 {
		t.Fatalf("call failure must degrade to nationwide scope, got %v", intent.Regions)
	}
}

func TestRegionExtractorFailOpenOnParseError(t *testing.T) {
	gen := &generatorFake{jsonText: "이건 JSON이 아닙니다"}
	extractor := NewRegionIntentExtractor(gen, discardLogger())

	intent := extractor.Extract(context.Background(), "부산 청년 정책")
	if !intent.InDomain || len(intent.Regions) != 0 {
		t.Fatalf("parse failure must degrade to nationwide in-domain intent")
	}
}

func TestNormalizeRegionsDedupes(t *testing.T) {
	got := NormalizeRegions([]string{"경기도", "경기", " 전국 ", ""})
	if len(got) != 1 || got[0] != "경기" {
		t.Fatalf("expected single 경기 token, got %v", got)
	}
}
