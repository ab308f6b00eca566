package pdcpregistry

// DiscardHandle is a weak reference to "SN sn on whichever entity is
// currently registered for bearerID", used by discard timers instead of a
// direct pointer to the entity that armed them. A discard timer's callback
// closes over a DiscardHandle and a *Registry, not over the entity itself:
// if the bearer is reestablished or torn down before the timer fires, the
// registry lookup simply finds no entity (or a different one) and the stale
// expiry is dropped instead of mutating state the entity no longer owns.
type DiscardHandle struct {
	BearerID uint32
	SN       uint32
}

// Fire resolves h against registry and, if a live entity is still
// registered for h.BearerID, delivers the discard expiry to it. It is safe
// to call after the original entity has been unregistered; the call becomes
// a no-op.
func (h DiscardHandle) Fire(registry *Registry) {
	entity, ok := registry.Get(h.BearerID)
	if !ok {
		return
	}
	entity.HandleDiscardExpiry(h.SN)
}
