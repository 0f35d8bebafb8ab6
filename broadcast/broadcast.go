// Package broadcast delivers cache invalidation signals to the caches that
// hold per-user authorization data.
//
// Delivery is fire-and-forget. Publishers never return errors to the caller;
// failures are logged and counted instead.
package broadcast

import (
	"context"
	"sync"
)

// Invalidation tells subscribers which cached authorization data is stale.
type Invalidation struct {
	// All marks every cached entry stale.
	All bool `json:"all,omitempty" yaml:"all,omitempty"`

	// UserIDs limits the invalidation to these users when All is false.
	UserIDs []string `json:"userIds,omitempty" yaml:"userIds,omitempty"`
}

// All returns an invalidation covering every user.
func All() Invalidation {
	return Invalidation{All: true}
}

// ForUsers returns an invalidation scoped to the given users.
func ForUsers(userIDs ...string) Invalidation {
	return Invalidation{UserIDs: userIDs}
}

// Empty reports whether the invalidation affects nobody.
func (i Invalidation) Empty() bool {
	return !i.All && len(i.UserIDs) == 0
}

// Affects reports whether userID is covered.
func (i Invalidation) Affects(userID string) bool {
	if i.All {
		return true
	}
	for _, id := range i.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Publisher emits invalidation signals.
type Publisher interface {
	Publish(ctx context.Context, inv Invalidation)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, inv Invalidation)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, inv Invalidation) {
	f(ctx, inv)
}

// Discard drops every invalidation.
var Discard Publisher = PublisherFunc(func(context.Context, Invalidation) {})

type multi []Publisher

// Multi fans each invalidation out to every publisher in order.
func Multi(publishers ...Publisher) Publisher {
	return multi(publishers)
}

func (m multi) Publish(ctx context.Context, inv Invalidation) {
	for _, p := range m {
		p.Publish(ctx, inv)
	}
}

// Recorder keeps every invalidation it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Invalidation
}

// Publish records inv.
func (r *Recorder) Publish(_ context.Context, inv Invalidation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, inv)
}

// Events returns a copy of the recorded invalidations.
func (r *Recorder) Events() []Invalidation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Invalidation, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many invalidations were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset forgets the recorded invalidations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
