// Package mistral implements provider.Provider on top of the Mistral chat
// completions API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/composer"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/config"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

const (
	providerName = "mistral"
	providerType = "api"
	description  = "Mistral AI через API"

	maxErrorBody = 64 << 10
)

// Client talks to one Mistral model. The underlying http.Client is created
// on first use and reused for the lifetime of the handle.
type Client struct {
	model    string
	apiKey   string
	baseURL  string
	timeout  time.Duration
	composer *composer.Composer
	tracer   trace.Tracer

	once       sync.Once
	httpClient *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a client for model. Empty fields of cfg fall back to the
// package defaults. Spans go to the global tracer provider installed at the
// time of the call.
func New(model string, cfg config.MistralConfig) *Client {
	if model == "" {
		model = config.DefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{
		model:    model,
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		timeout:  timeout,
		composer: composer.New(),
		tracer:   otel.Tracer(tracerName),
	}
}

// NewFactory returns a provider.Factory that builds clients sharing cfg.
func NewFactory(cfg config.MistralConfig) provider.Factory {
	return func(model string) provider.Provider {
		return New(model, cfg)
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) client() *http.Client {
	c.once.Do(func() {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &authTransport{
				apiKey: c.apiKey,
				base:   http.DefaultTransport,
			},
		}
	})
	return c.httpClient
}

// IsAvailable probes GET /models. Without an API key it returns false
// without touching the network.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.client().Do(req)
	if err != nil {
		slog.Debug("mistral probe failed", "model", c.model, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Generate sends the conversation with the rendered daily context as the
// system message. Every failure is returned as a user-facing string.
func (c *Client) Generate(ctx context.Context, messages []provider.Message, dc daily.Context) string {
	ctx, span := startSpan(ctx, c.tracer, c.model)
	defer span.end()

	text, err := c.complete(ctx, messages, dc)
	if err != nil {
		span.recordError(err)
		slog.Warn("mistral generation failed", "model", c.model, "error", err)
		return errorText(err)
	}
	span.recordResponse(text)
	return text
}

// Describe returns display metadata. It performs a live availability probe.
func (c *Client) Describe(ctx context.Context) provider.Info {
	return provider.Info{
		Name:           c.model,
		Provider:       providerName,
		Type:           providerType,
		Available:      c.IsAvailable(ctx),
		Description:    description,
		RequiresAPIKey: true,
		APIKeySet:      c.apiKey != "",
	}
}

// complete performs one chat completion and returns the trimmed reply.
func (c *Client) complete(ctx context.Context, messages []provider.Message, dc daily.Context) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	composed := c.composer.Compose(messages, dc)
	wire := make([]chatMessage, len(composed))
	for i, m := range composed {
		wire[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    wire,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	// The caller going away does not abort an in-flight completion; the
	// client timeout still bounds it.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Code: resp.StatusCode, Message: errorMessage(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("reading response: %w", err)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("response has no choices[0].message.content")
	}
	return strings.TrimSpace(content.String()), nil
}

// errorMessage extracts error.message from a JSON error body. A body with no
// error field yields a generic placeholder. Anything else that cannot be read
// as {"error": {...}} is returned as is.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return string(body)
	}
	e := root.Get("error")
	switch {
	case !e.Exists():
		return "Неизвестная ошибка"
	case !e.IsObject():
		return string(body)
	}
	if msg := e.Get("message"); msg.Exists() {
		return msg.String()
	}
	return "Неизвестная ошибка"
}

// errorText renders a completion failure for the chat transcript.
func errorText(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "❌ Ошибка: Mistral API ключ не установлен. Добавьте MISTRAL_API_KEY в переменные окружения или config.yaml"
	case errors.As(err, &se):
		return fmt.Sprintf("❌ Ошибка API: %d - %s", se.Code, se.Message)
	case errors.Is(err, ErrTimeout):
		return "❌ Таймаут при обращении к Mistral API. Проверьте интернет-соединение."
	default:
		return fmt.Sprintf("❌ Ошибка при обращении к Mistral API: %v", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// authTransport sets the headers every Mistral request carries.
type authTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.apiKey)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(r)
}
