package search

import (
	"context"
	"fmt"
)

// Scope narrows a query to the marketplace subset or the general web.
type Scope string

const (
	ScopeMarketplace Scope = "marketplace"
	ScopeGeneral     Scope = "general"
)

// Request carries all parameters required to execute one search call.
type Request struct {
	SerialValue string
	Scope       Scope
	MaxResults  int
}

// Result is one raw search hit before classification and deduplication.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Provider captures a single search strategy (API-backed, page scraping, etc.).
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) ([]Result, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("search provider %s is not registered", name)
}
