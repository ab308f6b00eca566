// Package pdcpregistry maps logical channel identifiers to live PDCP
// entities. It is the single place that knows "which entity handles LCID
// N", and exists so that a component holding a DiscardHandle (bearer ID +
// SN) never holds a direct pointer back to an entity: it resolves the handle
// through the Registry at fire time, so a handle that outlives a
// reestablished or torn-down entity finds nothing to call rather than
// dereferencing a dangling reference. pkg/pdcp's NewEntity does not use this
// path: the timer sets it builds call the entity's methods directly.
package pdcpregistry

import (
	"fmt"
	"sync"
)

// Entity is the subset of a PDCP entity's surface the registry and the
// weak-handle discard mechanism need to know about. The concrete entity type
// in pkg/pdcp implements this alongside its full operation set.
type Entity interface {
	// BearerID returns the logical channel identifier this entity serves.
	BearerID() uint32

	// HandleDiscardExpiry is invoked when a discard timer armed for sn fires.
	// Implementations must be safe to call from the registry's lookup path;
	// callers are expected to have already routed delivery onto the entity's
	// own task per the concurrency model.
	HandleDiscardExpiry(sn uint32)

	// HandleReorderExpiry is invoked when the t-Reordering timer fires.
	HandleReorderExpiry()
}

// Registry is a thread-safe map from bearer ID (logical channel identifier)
// to the PDCP entity serving it.
type Registry struct {
	mu       sync.RWMutex
	entities map[uint32]Entity
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entities: make(map[uint32]Entity)}
}

// Register adds entity under bearerID. Returns an error if the bearer ID is
// already registered — reestablish and teardown must Unregister first.
func (r *Registry) Register(bearerID uint32, entity Entity) error {
	if entity == nil {
		return fmt.Errorf("pdcpregistry: cannot register nil entity for bearer %d", bearerID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[bearerID]; exists {
		return fmt.Errorf("pdcpregistry: bearer %d already registered", bearerID)
	}
	r.entities[bearerID] = entity
	return nil
}

// Unregister removes the entity for bearerID, if any. Unregistering an
// unknown bearer ID is a no-op, keeping teardown idempotent.
func (r *Registry) Unregister(bearerID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, bearerID)
}

// Get returns the entity registered for bearerID, if any.
func (r *Registry) Get(bearerID uint32) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[bearerID]
	return e, ok
}

// Count returns the number of entities currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// List returns the bearer IDs of every currently registered entity, in no
// particular order.
func (r *Registry) List() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint32, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	return ids
}
