package authenticator

import (
	"context"

	"github.com/kizuna-social/backend/config"
)

// Registry is the immutable set of configured providers, keyed by name.
type Registry struct {
	providers map[string]Provider
	names     []string
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		if _, ok := r.providers[p.Name()]; ok {
			continue
		}

		r.providers[p.Name()] = p
		r.names = append(r.names, p.Name())
	}

	return r
}

// NewRegistryFromConfig creates a provider for every enabled provider config.
func NewRegistryFromConfig(ctx context.Context, cfg config.AuthConfigs) (*Registry, error) {
	var providers []Provider
	if cfg.Google.Enabled() {
		google, err := NewGoogle(ctx, cfg.Google)
		if err != nil {
			return nil, err
		}
		providers = append(providers, google)
	}

	if cfg.GitHub.Enabled() {
		providers = append(providers, NewGitHub(cfg.GitHub))
	}

	if cfg.X.Enabled() {
		providers = append(providers, NewX(cfg.X))
	}

	if cfg.Line.Enabled() {
		providers = append(providers, NewLine(cfg.Line))
	}

	return NewRegistry(providers...), nil
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the provider names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
