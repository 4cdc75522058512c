// Package openai implements the NLU and NLG collaborators on the OpenAI chat
// completions API (or an Azure OpenAI deployment).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	openai "github.com/sashabaranov/go-openai"
)

// Defaults for Config.
const (
	DefaultModel           = openai.GPT4o
	DefaultAzureAPIVersion = "2024-06-01"
	DefaultMaxTokens       = 512
	extractTemperature     = 0.1
)

// Config selects the endpoint and model.
type Config struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	// AzureEndpoint switches to Azure OpenAI; Model is then the deployment name.
	AzureEndpoint string  `koanf:"azure_endpoint"`
	APIVersion    string  `koanf:"api_version"`
	Model         string  `koanf:"model"`
	Temperature   float32 `koanf:"temperature"`
	MaxTokens     int     `koanf:"max_tokens"`
	// Instructions are appended to the generation system prompt.
	Instructions string `koanf:"instructions"`
}

// Client implements ports.Understander.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// Option configures the Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// New creates a client. An API key is required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	o := clientOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	var clientCfg openai.ClientConfig
	switch {
	case cfg.AzureEndpoint != "":
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		if cfg.APIVersion == "" {
			cfg.APIVersion = DefaultAzureAPIVersion
		}
		clientCfg.APIVersion = cfg.APIVersion
	default:
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}
	if o.httpClient != nil {
		clientCfg.HTTPClient = o.httpClient
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: o.logger,
	}, nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractIntent asks the model for intent, entities and stage in one JSON
// completion and normalizes the answer.
func (c *Client) ExtractIntent(ctx context.Context, message string, node *domain.Node, dialogueCtx map[string]any) (*domain.IntentResult, error) {
	user, err := nluUserPrompt(message, node, dialogueCtx)
	if err != nil {
		return nil, err
	}
	content, err := c.complete(ctx, nluSystemPrompt, user, extractTemperature, true)
	if err != nil {
		return nil, fmt.Errorf("intent extraction: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		c.logger.Warn("NLU returned invalid JSON", "content", content, "error", err)
		return nil, fmt.Errorf("intent extraction: invalid JSON: %w", err)
	}
	return Normalize(raw), nil
}

// GenerateResponse phrases a reply for the request's scenario.
func (c *Client) GenerateResponse(ctx context.Context, req domain.GenerationRequest) (string, error) {
	system := nlgSystemPrompt
	if c.cfg.Instructions != "" {
		system += "\n" + c.cfg.Instructions
	}
	user, err := nlgUserPrompt(req)
	if err != nil {
		return "", err
	}
	text, err := c.complete(ctx, system, user, c.cfg.Temperature, false)
	if err != nil {
		return "", fmt.Errorf("response generation: %w", err)
	}
	return text, nil
}
