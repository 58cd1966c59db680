// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider wraps each knowledge source behind a uniform Adapter.
// Adapters are stateless aside from fixed configuration and may be shared by
// concurrent requests.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Adapter searches a single knowledge source. Implementations call the
// upstream API at most once per Search, honour ctx cancellation, and return
// zero or more normalized items or an error.
type Adapter interface {
	Name() types.ProviderName
	Search(ctx context.Context, query string) ([]types.ResultItem, error)
}

// Describer is implemented by adapters that can explain what they are good
// for. The classifier lists these descriptions in its prompt.
type Describer interface {
	Description() string
}

// ErrMissingAPIKey is returned by adapters whose upstream needs a key.
var ErrMissingAPIKey = errors.New("api key is not set")

// Registry holds the adapters available to the pipeline, in registration order.
type Registry struct {
	order    []types.ProviderName
	adapters map[types.ProviderName]Adapter
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.ProviderName]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any previous adapter with the same name.
func (r *Registry) Register(a Adapter) {
	name := a.Name()
	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = a
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name types.ProviderName) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []types.ProviderName {
	out := make([]types.ProviderName, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int { return len(r.order) }

// Describe returns "name - description" lines for every registered adapter.
func (r *Registry) Describe() string {
	var b strings.Builder
	for i, name := range r.order {
		desc := "general knowledge source"
		if d, ok := r.adapters[name].(Describer); ok {
			desc = d.Description()
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, name, desc)
	}
	return b.String()
}

// Filter returns the names that are registered, in the given order, without
// duplicates. Unregistered names are returned separately.
func (r *Registry) Filter(names []types.ProviderName) (known, unknown []types.ProviderName) {
	seen := make(map[types.ProviderName]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := r.adapters[n]; ok {
			known = append(known, n)
		} else {
			unknown = append(unknown, n)
		}
	}
	return known, unknown
}

// Build registers the built-in adapters enabled by cfg. An empty Enabled
// list enables every built-in provider. Adapters that need an API key are
// still registered without one; they fail per request so the response shows
// why the source was unavailable.
func Build(ctx context.Context, cfg types.ProvidersConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	enabled := types.KnownProviders
	if len(cfg.Enabled) > 0 {
		enabled = nil
		for _, s := range cfg.Enabled {
			p, ok := types.ParseProviderName(s)
			if !ok {
				return nil, fmt.Errorf("unknown provider %q in configuration", s)
			}
			enabled = append(enabled, p)
		}
	}

	client := &http.Client{Timeout: cfg.Timeout}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = types.DefaultUserAgent
	}

	reg := NewRegistry()
	for _, p := range enabled {
		switch p {
		case types.ProviderArxiv:
			reg.Register(&Arxiv{Client: client, UserAgent: userAgent, MaxItems: cfg.CapFor(p)})
		case types.ProviderWikipedia:
			reg.Register(&Wikipedia{Client: client, UserAgent: userAgent, Lang: cfg.WikipediaLang, MaxItems: cfg.CapFor(p)})
		case types.ProviderScholar:
			reg.Register(&Scholar{APIKey: cfg.SerpAPIKey, MaxItems: cfg.CapFor(p)})
		case types.ProviderOpenAlex:
			reg.Register(&OpenAlex{Client: client, UserAgent: userAgent, Email: cfg.OpenAlexEmail, MaxItems: cfg.CapFor(p)})
		case types.ProviderWeb:
			web := &WebSearch{Model: cfg.WebModel, MaxItems: cfg.CapFor(p)}
			if cfg.GoogleAPIKey != "" {
				gc, err := llm.NewGenaiClient(ctx, cfg.GoogleAPIKey, nil, "")
				if err != nil {
					return nil, err
				}
				web.Models = gc.Models
			}
			reg.Register(web)
		}
		logger.Debug("registered provider", zap.String("provider", string(p)), zap.Int("max_items", cfg.CapFor(p)))
	}
	return reg, nil
}

// truncate shortens s to max runes, appending "..." when cut.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// firstN returns at most n strings.
func firstN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}
