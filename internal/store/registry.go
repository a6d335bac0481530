package store

import (
	"sync"
)

// Registry tracks subscriptions by name and fans changes out to them.
// Both the postgres hub and the local feed dispatch through it.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Add registers sub; names must be unique
func (r *Registry) Add(sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[sub.Name]; exists {
		return ErrSubscriptionExists
	}
	r.subs[sub.Name] = sub
	return nil
}

// Remove drops sub if it is still the registered subscription for its name
func (r *Registry) Remove(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.subs[sub.Name]; ok && current == sub {
		delete(r.subs, sub.Name)
	}
}

// Len returns the number of live subscriptions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Dispatch delivers c to every matching subscription, each on its own goroutine,
// and returns how many subscriptions matched.
func (r *Registry) Dispatch(c Change) int {
	r.mu.RLock()
	targets := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		matched := false
		for _, b := range sub.Bindings {
			if b.Matches(c) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		delivered++
		go sub.Deliver(c)
	}
	return delivered
}
