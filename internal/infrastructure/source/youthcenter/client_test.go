package youthcenter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/resilience"
)

const samplePage = `{
	"resultCode": 200,
	"result": {
		"youthPolicyList": [{
			"plcyNo": "R2024-001",
			"plcyNm": " 청년 월세 한시 특별지원 ",
			"plcyKywdNm": "주거, 월세",
			"plcyExplnCn": "무주택 청년의 월세를 지원합니다.",
			"lclsfNm": "주거",
			"mclsfNm": "주거비지원",
			"plcySprtCn": "월 최대 20만원 지원",
			"sprvsnInstCdNm": "국토교통부",
			"aplyYmd": "20240101 ~ 20241231",
			"aplyUrlAddr": "https://youthcenter.go.kr/apply",
			"sprtTrgtMinAge": "19",
			"sprtTrgtMaxAge": "34",
			"earnMinAmt": "0",
			"earnMaxAmt": "200000",
			"earnEtcCn": ""
		}]
	}
}`

func TestFetchPageMapsFeedFields(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/go/ythip/getPlcy" {
			http.NotFound(w, r)
			return
		}
		gotQuery = map[string]string{
			"apiKeyNm": r.URL.Query().Get("apiKeyNm"),
			"pageNum":  r.URL.Query().Get("pageNum"),
			"pageSize": r.URL.Query().Get("pageSize"),
			"rtnType":  r.URL.Query().Get("rtnType"),
			"lclsfNm":  r.URL.Query().Get("lclsfNm"),
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	client := New(server.URL, "key-1", nil)
	policies, err := client.FetchPage(context.Background(), "주거", 2, 100)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	want := map[string]string{"apiKeyNm": "key-1", "pageNum": "2", "pageSize": "100", "rtnType": "json", "lclsfNm": "주거"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("query param %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(policies) != 1 {
		t.Fatalf("expected one policy, got %d", len(policies))
	}
	p := policies[0]
	if p.PolicyID != "R2024-001" || p.Name != "청년 월세 한시 특별지원" {
		t.Fatalf("unexpected identity fields %+v", p)
	}
	if p.Eligibility.AgeMin == nil || *p.Eligibility.AgeMin != 19 {
		t.Fatalf("age min must parse, got %v", p.Eligibility.AgeMin)
	}
	if p.Earn.MinAmount == nil || *p.Earn.MinAmount != 0 {
		t.Fatalf("zero earn min must stay an explicit zero, got %v", p.Earn.MinAmount)
	}
	if p.Earn.MaxAmount == nil || *p.Earn.MaxAmount != 200000 {
		t.Fatalf("earn max must parse, got %v", p.Earn.MaxAmount)
	}
	if len(p.Regions) != 1 || p.Regions[0] != "전국" {
		t.Fatalf("ministry-run policy must tag nationwide, got %v", p.Regions)
	}
}

func TestFetchPageRejectsAPIResultError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultCode": 401, "resultMessage": "invalid api key"}`))
	}))
	defer server.Close()

	client := New(server.URL, "bad-key", nil)
	_, err := client.FetchPage(context.Background(), "주거", 1, 10)
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	client := New(server.URL, "key-1", executor)
	policies, err := client.FetchPage(context.Background(), "주거", 1, 10)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected the successful page, got %d policies", len(policies))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRegionsForAgency(t *testing.T) {
	cases := []struct {
		agency string
		want   string
	}{
		{"고용노동부", "전국"},
		{"병무청", "전국"},
		{"안산시", "안산"},
		{"경기도", "경기"},
	}
	for _, tc := range cases {
		got := regionsForAgency(tc.agency)
		if len(got) != 1 || got[0] != tc.want {
			t.Fatalf("regionsForAgency(%q) = %v, want [%s]", tc.agency, got, tc.want)
		}
	}
	if got := regionsForAgency("  "); got != nil {
		t.Fatalf("blank agency must yield no regions, got %v", got)
	}
}
