// Package requestctx carries request-scoped values through context.Context
// so services and the persistence layer can read them without extra
// parameters.
//
// The actor of a unit of work is stored in a scope created once per
// request:
//
//	ctx = requestctx.BeginScope(ctx)      // request middleware
//	requestctx.SetActor(ctx, userID)       // once the caller is authenticated
//	id, ok := requestctx.Actor(ctx)        // anywhere downstream
//
// SetActor mutates the scope in place, so code that received ctx before
// authentication still observes the actor afterwards. Each request gets
// its own scope value, so concurrent requests never share an actor.
package requestctx

import (
	"context"
	"sync"
)

type (
	scopeKey         struct{}
	correlationIDKey struct{}
)

// scope holds at most one actor id for a unit of work
type scope struct {
	mu      sync.RWMutex
	actorID int64
	set     bool
}

// BeginScope returns a child context carrying a fresh, empty actor scope.
// A nested scope shadows its parent; actors set on it are never visible
// through the parent context.
func BeginScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{})
}

// HasScope reports whether ctx carries an actor scope
func HasScope(ctx context.Context) bool {
	_, ok := ctx.Value(scopeKey{}).(*scope)
	return ok
}

// SetActor records id as the actor of the active scope. Without an active
// scope it does nothing.
func SetActor(ctx context.Context, id int64) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return
	}
	s.mu.Lock()
	s.actorID = id
	s.set = true
	s.mu.Unlock()
}

// Actor returns the actor recorded in the active scope
func Actor(ctx context.Context) (int64, bool) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actorID, s.set
}

// WithCorrelationID injects the request correlation id
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID retrieves the request correlation id, or "" if not set
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
