package mistral

import (
	"errors"
	"fmt"
)

// Sampling parameters sent with every completion request.
const (
	temperature = 0.7
	maxTokens   = 1000
	topP        = 0.95
)

// chatRequest is the body of POST /chat/completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	// ErrMissingCredential is returned before any I/O when no API key is
	// configured.
	ErrMissingCredential = errors.New("mistral: api key not set")

	// ErrTimeout wraps transport failures caused by the request deadline.
	ErrTimeout = errors.New("mistral: request timed out")
)

// StatusError is a non-2xx response from the API. Message is the remote
// error.message when the body is JSON, otherwise the raw body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mistral: unexpected status %d: %s", e.Code, e.Message)
}
