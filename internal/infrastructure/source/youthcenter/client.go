package youthcenter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://www.youthcenter.go.kr"

// Client fetches policy pages from the youth-center open API. This is the
// one upstream call with automatic retry: the API is slow and flaky, and
// sync runs are long-lived background jobs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

type feedPolicy struct {
	PolicyNo       string `json:"plcyNo"`
	Name           string `json:"plcyNm"`
	Keywords       string `json:"plcyKywdNm"`
	Content        string `json:"plcyExplnCn"`
	Category       string `json:"lclsfNm"`
	SubCategory    string `json:"mclsfNm"`
	SupportContent string `json:"plcySprtCn"`
	Agency         string `json:"sprvsnInstCdNm"`
	ApplyPeriod    string `json:"aplyYmd"`
	BizPeriodStart string `json:"bizPrdBgngYmd"`
	BizPeriodEnd   string `json:"bizPrdEndYmd"`
	ApplicationURL string `json:"aplyUrlAddr"`
	AgeMin         string `json:"sprtTrgtMinAge"`
	AgeMax         string `json:"sprtTrgtMaxAge"`
	EarnMin        string `json:"earnMinAmt"`
	EarnMax        string `json:"earnMaxAmt"`
	EarnEtc        string `json:"earnEtcCn"`
}

type feedResponse struct {
	ResultCode    int    `json:"resultCode"`
	ResultMessage string `json:"resultMessage"`
	Result        struct {
		YouthPolicyList []feedPolicy `json:"youthPolicyList"`
	} `json:"result"`
}

func (c *Client) FetchPage(ctx context.Context, category string, page, pageSize int) ([]domain.Policy, error) {
	var out []domain.Policy
	fetch := func(ctx context.Context) error {
		batch, err := c.fetchPage(ctx, category, page, pageSize)
		if err != nil {
			return err
		}
		out = batch
		return nil
	}

	if c.executor == nil {
		return out, fetch(ctx)
	}
	if err := c.executor.Execute(ctx, "youthcenter_fetch_page", fetch, resilience.TemporaryClassifier); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, category string, page, pageSize int) ([]domain.Policy, error) {
	params := url.Values{}
	params.Set("apiKeyNm", c.apiKey)
	params.Set("pageNum", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("rtnType", "json")
	if category != "" {
		params.Set("lclsfNm", category)
	}

	reqURL := c.baseURL + "/go/ythip/getPlcy?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "youthcenter fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.WrapError(domain.ErrTemporary, "youthcenter fetch", fmt.Errorf("status %s", resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(domain.ErrProvider, "youthcenter fetch", fmt.Errorf("status %s", resp.Status))
	}

	var feedResp feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feedResp); err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "youthcenter fetch", fmt.Errorf("decode response: %w", err))
	}
	if feedResp.ResultCode != 200 {
		return nil, domain.WrapError(domain.ErrProvider, "youthcenter fetch",
			fmt.Errorf("api result %d: %s", feedResp.ResultCode, feedResp.ResultMessage))
	}

	now := time.Now().UTC()
	out := make([]domain.Policy, 0, len(feedResp.Result.YouthPolicyList))
	for _, raw := range feedResp.Result.YouthPolicyList {
		out = append(out, mapPolicy(raw, now))
	}
	return out, nil
}

func mapPolicy(raw feedPolicy, now time.Time) domain.Policy {
	return domain.Policy{
		PolicyID:       raw.PolicyNo,
		Name:           strings.TrimSpace(raw.Name),
		Category:       raw.Category,
		SubCategory:    raw.SubCategory,
		Content:        raw.Content,
		SupportContent: raw.SupportContent,
		Agency:         raw.Agency,
		Regions:        regionsForAgency(raw.Agency),
		Keywords:       raw.Keywords,
		ApplicationURL: raw.ApplicationURL,
		Eligibility: domain.Eligibility{
			AgeMin: parseOptionalInt(raw.AgeMin),
			AgeMax: parseOptionalInt(raw.AgeMax),
		},
		Dates: domain.PolicyDates{
			ApplyPeriod: raw.ApplyPeriod,
			ApplyStart:  raw.BizPeriodStart,
			ApplyEnd:    raw.BizPeriodEnd,
		},
		Earn: domain.Earn{
			MinAmount:  parseOptionalInt(raw.EarnMin),
			MaxAmount:  parseOptionalInt(raw.EarnMax),
			EtcContent: raw.EarnEtc,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// regionsForAgency derives the coarse region tag from the supervising
// agency name. Central ministries and committees run nationwide programs;
// regional governments carry their own name minus the 시/도 suffix.
func regionsForAgency(agency string) []string {
	agency = strings.TrimSpace(agency)
	if agency == "" {
		return nil
	}
	for _, suffix := range []string{"부", "처", "청", "위원회"} {
		if strings.HasSuffix(agency, suffix) {
			return []string{"전국"}
		}
	}
	if trimmed := strings.TrimSuffix(agency, "시"); trimmed != agency {
		return []string{trimmed}
	}
	if trimmed := strings.TrimSuffix(agency, "도"); trimmed != agency {
		return []string{trimmed}
	}
	return []string{agency}
}

// parseOptionalInt keeps the feed's nil-vs-zero distinction: a blank field
// stays nil, "0" means no limit.
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}
