// Package fanout keeps the listener registry shared by identity provider adapters.
// Notifications are delivered synchronously and in the order state changes were published.
package fanout

import (
	"slices"
	"sync"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// Registry fans identity notifications out to subscribed listeners.
type Registry struct {
	// publishMu serializes state changes with their delivery.
	publishMu sync.Mutex

	mu        sync.Mutex
	listeners map[uint64]ports.IdentityListener
	nextID    uint64
}

// Subscribe registers fn and delivers current() to it before any later publication.
func (r *Registry) Subscribe(fn ports.IdentityListener, current func() *domainauth.Identity) func() {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	r.mu.Lock()
	if r.listeners == nil {
		r.listeners = make(map[uint64]ports.IdentityListener)
	}
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	r.mu.Unlock()

	fn(current())

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Publish runs change and delivers the identity it returns to every listener.
func (r *Registry) Publish(change func() *domainauth.Identity) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	id := change()
	for _, fn := range r.snapshot() {
		fn(id)
	}
}

// Len reports the number of subscribed listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *Registry) snapshot() []ports.IdentityListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]ports.IdentityListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.listeners[id])
	}
	return out
}
