package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
)

// Client drives an OpenAI-compatible API for both chat completion and
// embeddings. One instance serves every model call in the pipeline.
type Client struct {
	api        *openai.Client
	chatModel  string
	embedModel openai.EmbeddingModel
	dimensions int
	logger     *slog.Logger
}

// Config holds the provider settings. BaseURL may point at any
// OpenAI-compatible endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Dimensions int
	Logger     *slog.Logger
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		chatModel:  cfg.ChatModel,
		embedModel: openai.EmbeddingModel(cfg.EmbedModel),
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

func (c *Client) Embed(ctx context.Context, text string, role ports.EmbeddingRole) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, role)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string, role ports.EmbeddingRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           string(role),
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseAPIError("create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrProvider, "create embeddings",
			fmt.Errorf("got %d vectors for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, nil, 0)
}

func (c *Client) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	return c.complete(ctx, system, user, format, 0)
}

func (c *Client) GenerateDeterministic(ctx context.Context, system, user string) (string, error) {
	// The client omits a zero temperature from the request body, so the
	// smallest representable value stands in for an explicit zero.
	return c.complete(ctx, system, user, nil, math.SmallestNonzeroFloat32)
}

func (c *Client) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
		Temperature:    temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrProvider, "chat completion", fmt.Errorf("empty choices"))
	}
	if resp.Usage.TotalTokens > 0 {
		c.logger.Debug("model_call_completed", "model", c.chatModel, "total_tokens", resp.Usage.TotalTokens)
	}
	return resp.Choices[0].Message.Content, nil
}

// parseAPIError extracts a readable message from the API error shape and
// wraps it as a provider failure.
func parseAPIError(operation string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.WrapError(domain.ErrProvider, operation,
			fmt.Errorf("api error %d: %s", reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.WrapError(domain.ErrProvider, operation,
			fmt.Errorf("api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}

	return domain.WrapError(domain.ErrProvider, operation, err)
}

func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
