package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
)

// ConfigError marks a gateway whose persisted configuration cannot
// produce a working adapter. The processor excludes such gateways from
// a run instead of aborting it.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gateway provider %q: %s", e.Provider, e.Reason)
}

// Deps are the shared resources handed to adapter factories.
type Deps struct {
	HTTP *httpclient.Client
	// DefaultCountryCode is prepended to national phone numbers by
	// SMS-style adapters.
	DefaultCountryCode string
}

// Factory builds an adapter from a persisted gateway record. The
// registry has already verified the required config keys are present.
type Factory func(cfg model.GatewayConfig, deps Deps) (Gateway, error)

type registration struct {
	channel      model.Channel
	requiredKeys []string
	factory      Factory
}

// Registry maps provider identifiers to adapter factories and their
// declared configuration requirements.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]registration)}
}

// Register wires a provider factory. Registering the same provider
// twice is a programmer error.
func (r *Registry) Register(provider string, channel model.Channel, requiredKeys []string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[provider]; exists {
		panic(fmt.Sprintf("gateway provider %q registered twice", provider))
	}
	r.providers[provider] = registration{
		channel:      channel,
		requiredKeys: requiredKeys,
		factory:      factory,
	}
}

// Build constructs an adapter for the persisted gateway record,
// validating provider, channel and required config keys first.
func (r *Registry) Build(gw *model.Gateway, deps Deps) (Gateway, error) {
	r.mu.RLock()
	reg, ok := r.providers[gw.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigError{Provider: gw.Provider, Reason: "unknown provider"}
	}
	if reg.channel != gw.Channel {
		return nil, &ConfigError{
			Provider: gw.Provider,
			Reason:   fmt.Sprintf("provider serves channel %q, gateway configured for %q", reg.channel, gw.Channel),
		}
	}
	for _, key := range reg.requiredKeys {
		if gw.Config[key] == "" {
			return nil, &ConfigError{
				Provider: gw.Provider,
				Reason:   fmt.Sprintf("missing required config key %q", key),
			}
		}
	}
	return reg.factory(gw.Config, deps)
}

// RequiredKeys returns the config keys a provider declares.
func (r *Registry) RequiredKeys(provider string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.providers[provider]
	if !ok {
		return nil, false
	}
	keys := make([]string, len(reg.requiredKeys))
	copy(keys, reg.requiredKeys)
	return keys, true
}

// ChannelFor returns the channel a provider serves.
func (r *Registry) ChannelFor(provider string) (model.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.providers[provider]
	return reg.channel, ok
}

// Providers lists registered provider identifiers, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
