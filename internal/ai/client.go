// Package ai wraps OpenAI-compatible chat completion endpoints behind a
// provider fallback chain.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var ErrNoProviders = errors.New("no AI provider configured")

type Message struct {
	Role    string
	Content string
}

// Provider configures one OpenAI-compatible endpoint.
type Provider struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

type provider struct {
	name   string
	model  string
	client *openai.Client
}

// Client tries each configured provider in order until one answers.
type Client struct {
	providers   []provider
	maxTokens   int
	temperature float32
}

func NewClient(providers []Provider, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	c := &Client{maxTokens: 512, temperature: 0.7}
	for _, p := range providers {
		if p.APIKey == "" {
			continue
		}
		cfg := openai.DefaultConfig(p.APIKey)
		if p.BaseURL != "" {
			cfg.BaseURL = p.BaseURL
		}
		cfg.HTTPClient = httpClient
		c.providers = append(c.providers, provider{
			name:   p.Name,
			model:  p.Model,
			client: openai.NewClientWithConfig(cfg),
		})
	}
	return c
}

// Complete returns the first non-empty answer of the provider chain.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	req := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		req = append(req, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	var errs []error
	for _, p := range c.providers {
		content, err := p.complete(ctx, req, c.maxTokens, c.temperature)
		if err == nil {
			return content, nil
		}
		slog.Warn("AI provider failed", "provider", p.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

func (p provider) complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response")
	}
	return content, nil
}
