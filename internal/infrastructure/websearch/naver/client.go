package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

const defaultEndpoint = "https://openapi.naver.com/v1/search/webkr.json"

// Client queries the Naver web search API. It is the last-resort evidence
// source, so failures are reported and never retried here.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func New(clientID, clientSecret string) *Client {
	return &Client{
		endpoint:     defaultEndpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWithEndpoint overrides the API endpoint, for tests and proxies.
func NewWithEndpoint(endpoint, clientID, clientSecret string) *Client {
	c := New(clientID, clientSecret)
	c.endpoint = strings.TrimRight(endpoint, "/")
	return c
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "naver search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(domain.ErrProvider, "naver search", fmt.Errorf("status %s", resp.Status))
	}

	var searchResp struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Description string `json:"description"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "naver search", fmt.Errorf("decode response: %w", err))
	}

	out := make([]domain.WebResult, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		out = append(out, domain.WebResult{
			Title:   cleanMarkup(item.Title),
			Link:    item.Link,
			Snippet: cleanMarkup(item.Description),
		})
	}
	return out, nil
}

// cleanMarkup strips the highlight tags and entities Naver embeds in
// titles and descriptions.
func cleanMarkup(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	return strings.TrimSpace(html.UnescapeString(s))
}
