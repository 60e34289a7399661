package policy

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownService is returned for service IDs the registry was not
// initialized with. The registry is a whitelist: services are never created
// on demand.
var ErrUnknownService = errors.New("unknown service")

// Registry is the in-memory source of truth for per-service policy state.
// Reads are concurrent and never block on I/O. All writes must flow through
// the administrative operation handler so that persistence and audit happen
// alongside every mutation.
type Registry struct {
	mu       sync.RWMutex
	services map[string]State
}

// NewRegistry creates a registry holding the given services at the secure
// default (disabled, DISABLED).
func NewRegistry(serviceIDs []string) *Registry {
	services := make(map[string]State, len(serviceIDs))
	for _, id := range serviceIDs {
		services[id] = DefaultState(id)
	}

	return &Registry{services: services}
}

// Seed replaces the state of services already known to the registry with
// persisted values. Entries for unknown services are ignored: the compiled-in
// service set is the whitelist, persisted files cannot extend it.
func (r *Registry) Seed(states map[string]State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, state := range states {
		if _, ok := r.services[id]; !ok {
			continue
		}

		state.ServiceID = id
		r.services[id] = state.Clone()
	}
}

// Get returns the current state of a service.
func (r *Registry) Get(serviceID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.services[serviceID]
	if !ok {
		return State{}, false
	}

	return state.Clone(), true
}

// Set replaces the state of a known service and returns the previous state.
func (r *Registry) Set(serviceID string, state State) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.services[serviceID]
	if !ok {
		return State{}, ErrUnknownService
	}

	state.ServiceID = serviceID
	r.services[serviceID] = state.Clone()

	return previous, nil
}

// Reset returns a known service to the secure default and returns the
// previous state. Services are never deleted.
func (r *Registry) Reset(serviceID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.services[serviceID]
	if !ok {
		return State{}, ErrUnknownService
	}

	r.services[serviceID] = DefaultState(serviceID)

	return previous, nil
}

// All returns every service state ordered by service ID.
func (r *Registry) All() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.services))
	for _, state := range r.services {
		states = append(states, state.Clone())
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].ServiceID < states[j].ServiceID
	})

	return states
}

// Snapshot returns a copy of the full service map, for persistence.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]State, len(r.services))
	for id, state := range r.services {
		snapshot[id] = state.Clone()
	}

	return snapshot
}
