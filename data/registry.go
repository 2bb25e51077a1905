package data

import (
	"fmt"
	"sort"
	"strings"
)

// NewRegistry returns a registry with the memory provider registered
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	if err := r.Register(MemoryType, func(s Settings) (Provider, error) {
		return NewMemory(s.Bars, s.BatchSize), nil
	}); err != nil {
		panic(err)
	}
	return r
}

// Register adds a factory for a data provider type
func (r *Registry) Register(providerType string, f Factory) error {
	providerType = strings.ToLower(providerType)
	if _, ok := r.factories[providerType]; ok {
		return fmt.Errorf("%w: %v", ErrProviderAlreadyRegistered, providerType)
	}
	if f == nil {
		return fmt.Errorf("%w: %v", errNilFactory, providerType)
	}
	r.factories[providerType] = f
	return nil
}

// New builds the provider for s.Type and applies its replay speed
func (r *Registry) New(s Settings) (Provider, error) {
	f, ok := r.factories[strings.ToLower(s.Type)]
	if !ok {
		return nil, fmt.Errorf("%w '%v', registered types: %v", ErrUnknownProviderType, s.Type, strings.Join(r.Types(), ", "))
	}
	p, err := f(s)
	if err != nil {
		return nil, fmt.Errorf("%v provider: %w", s.Type, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%v: %w", s.Type, errNilProvider)
	}
	return Throttle(p, s.ReplaySpeed), nil
}

// Types returns the registered provider types
func (r *Registry) Types() []string {
	resp := make([]string, 0, len(r.factories))
	for k := range r.factories {
		resp = append(resp, k)
	}
	sort.Strings(resp)
	return resp
}
