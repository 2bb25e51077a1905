package exchange

import (
	"fmt"
	"sort"
	"strings"
)

// NewRegistry returns a registry with the backtest simulator registered
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	if err := r.Register(BacktestType, func(s Settings) (ExecutionHandler, error) {
		e, err := Setup(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	}); err != nil {
		panic(err)
	}
	return r
}

// Register adds a factory for an execution provider type
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

// New builds the execution handler registered under providerType
func (r *Registry) New(providerType string, s Settings) (ExecutionHandler, error) {
	f, ok := r.factories[strings.ToLower(providerType)]
	if !ok {
		return nil, fmt.Errorf("%w '%v', registered types: %v", ErrUnknownExecutionProvider, providerType, strings.Join(r.Types(), ", "))
	}
	return f(s)
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
