// Package manager owns the active model selection shared by every request.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/config"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/sysinfo"
)

// ProviderAPI is the only provider kind the manager selects.
const ProviderAPI = "api"

// probeLimit bounds concurrent availability probes in ListAvailable.
const probeLimit = 4

// Store defines the configuration operations the Manager needs.
// Implemented by config.Store.
type Store interface {
	GetString(key, def string) string
	Set(key string, value any) error
	Catalog() []config.ModelEntry
}

// Active is one consistent view of the current selection.
type Active struct {
	Provider string
	Model    string
	Handle   provider.Provider
}

// ModelStatus is a catalog entry annotated with live availability.
type ModelStatus struct {
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`
	Type        string `json:"type"`
	Available   bool   `json:"available"`
	Current     bool   `json:"current"`
}

// CurrentModel is the active model summary embedded in several responses.
type CurrentModel struct {
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Host describes the machine the backend runs on. The GPU fields are kept
// constant for frontend compatibility.
type Host struct {
	CPUCores      int     `json:"cpu_cores"`
	TotalRAMGB    float64 `json:"total_ram_gb"`
	CUDAAvailable bool    `json:"cuda_available"`
	TorchVersion  string  `json:"torch_version"`
}

// SystemInfo is the host and active model report.
type SystemInfo struct {
	System       Host         `json:"system"`
	CurrentModel CurrentModel `json:"current_model"`
}

// Manager holds the active model. Readers take a single snapshot per call,
// so a concurrent switch never produces a mixed view.
type Manager struct {
	store   Store
	factory provider.Factory
	host    func() sysinfo.Info

	active atomic.Pointer[Active]

	// switchMu makes the active swap and its persistence one step, so the
	// saved default always names the model that ended up active.
	switchMu sync.Mutex
}

// New creates a Manager whose initial model is defaults.model. The initial
// handle is built without probing.
func New(store Store, factory provider.Factory) *Manager {
	return NewWithHost(store, factory, sysinfo.Read)
}

// NewWithHost creates a Manager with a custom host info source (for testing).
func NewWithHost(store Store, factory provider.Factory, host func() sysinfo.Info) *Manager {
	m := &Manager{store: store, factory: factory, host: host}

	name := store.GetString("defaults.model", config.DefaultModel)
	if name == "" {
		name = config.DefaultModel
	}
	slog.Info("initializing model", "model", name, "provider", ProviderAPI)
	m.active.Store(&Active{Provider: ProviderAPI, Model: name, Handle: factory(name)})
	return m
}

// Current returns the active selection. The boolean is false when no model
// has been loaded.
func (m *Manager) Current() (Active, bool) {
	a := m.active.Load()
	if a == nil || a.Handle == nil {
		return Active{}, false
	}
	return *a, true
}

// SwitchTo makes name the active model if a probe succeeds, and persists the
// choice. On failure the previous selection stays in place.
func (m *Manager) SwitchTo(ctx context.Context, name string) bool {
	if name == "" {
		return false
	}
	slog.Info("switching model", "model", name)

	candidate := m.factory(name)
	if !candidate.IsAvailable(ctx) {
		slog.Warn("model unavailable, keeping current selection", "model", name)
		return false
	}

	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.active.Store(&Active{Provider: ProviderAPI, Model: name, Handle: candidate})

	if err := m.store.Set("defaults.provider", ProviderAPI); err != nil {
		slog.Error("persisting default provider", "error", err)
	}
	if err := m.store.Set("defaults.model", name); err != nil {
		slog.Error("persisting default model", "error", err)
	}
	slog.Info("model switched", "model", name)
	return true
}

// ListAvailable returns the configured catalog, probing each entry. Results
// keep catalog order.
func (m *Manager) ListAvailable(ctx context.Context) []ModelStatus {
	catalog := m.store.Catalog()
	current, _ := m.Current()

	out := make([]ModelStatus, len(catalog))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(probeLimit)

	for i, entry := range catalog {
		out[i] = ModelStatus{
			Name:        entry.Name,
			ID:          entry.ID,
			Description: entry.Description,
			Provider:    ProviderAPI,
			Type:        ProviderAPI,
			Current:     current.Provider == ProviderAPI && current.Model == entry.Name,
		}
		g.Go(func() error {
			out[i].Available = m.factory(entry.Name).IsAvailable(gCtx)
			return nil
		})
	}
	g.Wait()
	return out
}

// SystemInfo reports host facts and the active model's live availability.
func (m *Manager) SystemInfo(ctx context.Context) SystemInfo {
	h := m.host()
	info := SystemInfo{
		System: Host{
			CPUCores:      h.CPUCores,
			TotalRAMGB:    h.TotalRAMGB(),
			CUDAAvailable: false,
			TorchVersion:  "N/A",
		},
	}
	if a, ok := m.Current(); ok {
		info.CurrentModel = CurrentModel{
			Provider:  a.Provider,
			Name:      a.Model,
			Available: a.Handle.IsAvailable(ctx),
		}
	}
	return info
}
