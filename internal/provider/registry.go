package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Registry maps provider kinds to their variants.
type Registry struct {
	mu       sync.RWMutex
	variants map[types.ProviderKind]Variant
}

// NewRegistry creates a registry holding the built-in variants.
func NewRegistry() *Registry {
	r := &Registry{variants: make(map[types.ProviderKind]Variant)}
	r.Register(Completion{})
	r.Register(Thread{})
	r.Register(Generic{})
	return r
}

// Register adds or replaces a variant.
func (r *Registry) Register(v Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[v.Kind()] = v
}

// Get retrieves the variant for kind.
func (r *Registry) Get(kind types.ProviderKind) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[kind]
	if !ok {
		return nil, fmt.Errorf("provider variant not found: %s", kind)
	}
	return v, nil
}

// ForProvider resolves the variant serving a provider key in cfg.
func (r *Registry) ForProvider(cfg *types.Config, providerKey string) (Variant, error) {
	return r.Get(cfg.KindOf(providerKey))
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []types.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.ProviderKind, 0, len(r.variants))
	for k := range r.variants {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
