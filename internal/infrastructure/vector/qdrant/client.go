package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

const nationwideValue = "전국"

// Client speaks the Qdrant HTTP API directly. Policy chunks live in one
// collection; the region filter is a should-clause so nationwide chunks
// always stay eligible.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) UpsertChunks(ctx context.Context, policy *domain.Policy, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", fmt.Errorf("chunks/vectors mismatch"))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	region := ""
	if len(policy.Regions) > 0 {
		region = policy.Regions[0]
	}

	points := make([]point, 0, len(chunks))
	for i := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"policy_id":   policy.PolicyID,
				"chunk_id":    fmt.Sprintf("%s-%d", policy.PolicyID, i),
				"title":       policy.Name,
				"region":      region,
				"regions":     policy.Regions,
				"category":    policy.Category,
				"content":     chunks[i],
				"keywords":    policy.Keywords,
				"chunk_index": i,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", statusError(resp))
	}
	return nil
}

func (c *Client) Search(ctx context.Context, vector []float32, topN int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topN,
		"with_payload": true,
	}
	if qf := buildFilter(filter); qf != nil {
		reqBody["filter"] = qf
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", statusError(resp))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", fmt.Errorf("decode response: %w", err))
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			PolicyID: getStringPayload(r.Payload, "policy_id"),
			ChunkID:  getStringPayload(r.Payload, "chunk_id"),
			Title:    getStringPayload(r.Payload, "title"),
			Region:   getStringPayload(r.Payload, "region"),
			Regions:  getStringSlicePayload(r.Payload, "regions"),
			Category: getStringPayload(r.Payload, "category"),
			Content:  getStringPayload(r.Payload, "content"),
			Keywords: getStringPayload(r.Payload, "keywords"),
			Score:    r.Score,
		})
	}
	return out, nil
}

// buildFilter maps the structured filter onto qdrant clauses. The region
// constraint is a should over the region fields plus the nationwide label;
// categories are a hard must.
func buildFilter(filter domain.SearchFilter) map[string]any {
	var must []map[string]any
	var should []map[string]any

	if filter.Region != "" {
		should = append(should,
			map[string]any{"key": "region", "match": map[string]any{"value": filter.Region}},
			map[string]any{"key": "regions", "match": map[string]any{"value": filter.Region}},
			map[string]any{"key": "region", "match": map[string]any{"value": nationwideValue}},
		)
	}
	if len(filter.Categories) > 0 {
		must = append(must, map[string]any{
			"key":   "category",
			"match": map[string]any{"any": filter.Categories},
		})
	}

	if len(must) == 0 && len(should) == 0 {
		return nil
	}
	out := map[string]any{}
	if len(must) > 0 {
		out["must"] = must
	}
	if len(should) > 0 {
		out["should"] = should
	}
	return out
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", statusError(resp))
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("status %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("status %s", resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getStringSlicePayload(payload map[string]any, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
