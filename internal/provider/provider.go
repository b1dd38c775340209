// Package provider defines the capability every hosted-model backend offers
// to the model manager.
package provider

import (
	"context"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
)

// Provider abstracts a hosted chat model. Implementations never return
// errors from Generate: failures become user-facing text so a chat request
// succeeds at the transport layer even when the model call did not.
type Provider interface {
	// IsAvailable reports whether the backend can serve requests right now.
	// It must not panic or block past the provider's own timeout.
	IsAvailable(ctx context.Context) bool

	// Generate renders dc into a system message, prepends it to messages and
	// returns the model's reply or a descriptive failure string.
	Generate(ctx context.Context, messages []Message, dc daily.Context) string

	// Describe returns display metadata, including a live availability flag.
	Describe(ctx context.Context) Info

	// Model returns the model identifier this handle was built for.
	Model() string
}

// Factory builds a provider handle for the named model.
type Factory func(model string) Provider
