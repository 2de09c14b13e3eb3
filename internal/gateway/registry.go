package gateway

import (
	"sort"
	"sync"

	billingerrors "plans/internal/errors"
)

// Constructor builds a gateway from its settings.
type Constructor func(Settings) (Gateway, error)

// Registry maps the BILLING_GATEWAY keys to adapter constructors. It is
// filled explicitly at startup.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register panics on a nil constructor or a duplicate key.
func (r *Registry) Register(key string, c Constructor) {
	if c == nil {
		panic("gateway: nil constructor for " + key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.constructors[key]; dup {
		panic("gateway: duplicate registration of " + key)
	}
	r.constructors[key] = c
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.constructors))
	for k := range r.constructors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve builds the gateway registered under key.
func (r *Registry) Resolve(key string, s Settings) (Gateway, error) {
	r.mu.RLock()
	c, ok := r.constructors[key]
	r.mu.RUnlock()
	if !ok {
		return nil, billingerrors.ErrGatewayNotConfigured.Withf("unknown gateway %q", key)
	}
	gw, err := c(s)
	if err != nil {
		return nil, billingerrors.ErrGatewayNotConfigured.Withf("%s", key).Wrap(err)
	}
	return gw, nil
}
