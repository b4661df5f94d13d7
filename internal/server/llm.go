package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vanderheijden86/herbgraph/pkg/config"
)

// ErrNoAPIKey is returned when no LLM key is configured.
var ErrNoAPIKey = errors.New("no LLM API key configured")

// Generator turns a prompt into model text.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ChatGenerator calls an OpenAI-compatible chat completions endpoint.
type ChatGenerator struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewChatGenerator builds a generator from cfg. The key is read from the
// environment variable named in cfg.
func NewChatGenerator(cfg config.LLMConfig) (*ChatGenerator, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &ChatGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model name.
func (g *ChatGenerator) Model() string { return g.model }

// Complete sends prompt as a single user message and returns the first
// choice.
func (g *ChatGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// unavailableGenerator answers every call with err, used when the backend
// starts without an LLM key.
type unavailableGenerator struct{ err error }

func (u unavailableGenerator) Complete(context.Context, string) (string, error) { return "", u.err }
func (u unavailableGenerator) Model() string                                   { return "none" }
