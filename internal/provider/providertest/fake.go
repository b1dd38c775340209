// Package providertest provides an in-memory provider.Provider for tests.
package providertest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

// Fake is a scripted provider. Reply is returned from Generate; if Panic is
// set, Generate panics with it instead.
type Fake struct {
	Name      string
	Available bool
	Reply     string
	Panic     any

	Probes atomic.Int32

	mu       sync.Mutex
	Messages []provider.Message
	Context  daily.Context
}

var _ provider.Provider = (*Fake)(nil)

func (f *Fake) IsAvailable(context.Context) bool {
	f.Probes.Add(1)
	return f.Available
}

func (f *Fake) Generate(_ context.Context, messages []provider.Message, dc daily.Context) string {
	if f.Panic != nil {
		panic(f.Panic)
	}
	f.mu.Lock()
	f.Messages = messages
	f.Context = dc
	f.mu.Unlock()
	return f.Reply
}

func (f *Fake) Describe(ctx context.Context) provider.Info {
	return provider.Info{
		Name:           f.Name,
		Provider:       "mistral",
		Type:           "api",
		Available:      f.IsAvailable(ctx),
		Description:    "fake",
		RequiresAPIKey: true,
		APIKeySet:      true,
	}
}

func (f *Fake) Model() string { return f.Name }

// Factory builds Fakes. Models listed in Available probe as reachable; every
// built handle is recorded in Built.
type Factory struct {
	Available map[string]bool
	Reply     string

	mu    sync.Mutex
	Built []*Fake
}

// Build implements provider.Factory.
func (fa *Factory) Build(model string) provider.Provider {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	f := &Fake{Name: model, Available: fa.Available[model], Reply: fa.Reply}
	fa.Built = append(fa.Built, f)
	return f
}

// Count returns how many handles were built.
func (fa *Factory) Count() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return len(fa.Built)
}
