package providers

import (
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when no adapter is registered for an ID
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned on duplicate registration
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry maps the closed set of provider IDs to adapter instances. All
// registration happens at startup; lookups are read-mostly.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ID]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[ID]Provider)}
}

// Register adds an adapter. The adapter's ID must be one of KnownIDs.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider cannot be nil")
	}
	if _, err := ParseID(string(p.ID())); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[p.ID()]; exists {
		return ErrProviderAlreadyRegistered
	}
	r.adapters[p.ID()] = p
	return nil
}

// Get retrieves the adapter for an ID.
func (r *Registry) Get(id ID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.adapters[id]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// IDs returns the registered provider IDs in KnownIDs order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.adapters))
	for _, id := range KnownIDs {
		if _, ok := r.adapters[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
