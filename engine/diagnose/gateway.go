package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zester4/fixium/engine/domain"
)

// ChatClient issues one multimodal completion request. Implementations are
// fire-once: no retry, no timeout beyond what the HTTP client enforces.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, photos []domain.CapturedPhoto) (string, error)
}

// Gateway calls an OpenAI-compatible chat-completions endpoint with the
// photos attached as inline data-URI images.
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// GatewayOpts configures the Gateway.
type GatewayOpts struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewGateway creates a Gateway with an OTel-instrumented transport.
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.Model == "" {
		opts.Model = "google/gemini-3-flash-preview"
	}
	return &Gateway{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends exactly one request and returns the text body of the first
// choice. Missing credentials fail before any request leaves the process.
func (g *Gateway) Complete(ctx context.Context, system, user string, photos []domain.CapturedPhoto) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	parts := []contentPart{{Type: "text", Text: user}}
	for _, p := range photos {
		if _, _, err := domain.ParseDataURL(p.DataURL); err != nil {
			return "", err
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: p.DataURL}})
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: parts},
		},
		MaxTokens: 4000,
	})
	if err != nil {
		return "", fmt.Errorf("diagnose: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("diagnose: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("diagnose: gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", ErrRateLimited
		case http.StatusPaymentRequired:
			return "", ErrQuotaExhausted
		default:
			return "", &GatewayError{Status: resp.StatusCode, Body: string(raw)}
		}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("diagnose: decode gateway response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", ErrNoResponseText
	}
	return cr.Choices[0].Message.Content, nil
}
