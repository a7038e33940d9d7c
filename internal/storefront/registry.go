package storefront

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"phone8/internal/datagrid"
)

// Visitor bundles a session with the concrete table the web layer reads
// pages and exports from.
type Visitor struct {
	Session *Session
	Table   *datagrid.Table
}

// Factory builds the visitor for a new session id.
type Factory func(id string) *Visitor

// Registry keeps the mounted sessions of all visitors in memory. Nothing
// survives a restart.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu       sync.RWMutex
	visitors map[string]*Visitor
	closed   bool
}

// NewRegistry creates a Registry that tears sessions down after ttl of
// inactivity.
func NewRegistry(factory Factory, ttl time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		visitors: make(map[string]*Visitor),
	}
}

// Acquire returns the visitor for id, mounting a new session on first
// sight. created reports whether the session was just mounted. It returns
// nil once the registry is closed.
func (r *Registry) Acquire(ctx context.Context, id string) (v *Visitor, created bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false
	}
	v, ok := r.visitors[id]
	if !ok {
		v = r.factory(id)
		r.visitors[id] = v
	}
	v.Session.touch(r.now())
	r.mu.Unlock()

	if !ok {
		r.logger.Info("session started", zap.String("session", id))
		v.Session.Mount(ctx)
	}
	return v, !ok
}

// Resume returns the visitor for id without creating one and keeps its
// session from idling out.
func (r *Registry) Resume(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	if ok {
		v.Session.touch(r.now())
	}
	return v, ok
}

// Lookup returns the visitor for id without creating one.
func (r *Registry) Lookup(id string) (*Visitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.visitors[id]
	return v, ok
}

// Reset tears down and forgets the session for id.
func (r *Registry) Reset(id string) bool {
	r.mu.Lock()
	v, ok := r.visitors[id]
	delete(r.visitors, id)
	r.mu.Unlock()

	if ok {
		v.Session.Close()
		r.logger.Info("session reset", zap.String("session", id))
	}
	return ok
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.visitors)
}

// Sweep tears down sessions idle for longer than the ttl and returns how
// many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Visitor
	for id, v := range r.visitors {
		if v.Session.idleSince().Before(cutoff) {
			expired = append(expired, v)
			delete(r.visitors, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Session.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle sessions", zap.Int("count", len(expired)), zap.Int("remaining", r.Len()))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close tears down every session. Later Acquire calls return nil.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	visitors := r.visitors
	r.visitors = make(map[string]*Visitor)
	r.mu.Unlock()

	for _, v := range visitors {
		v.Session.Close()
	}
	r.logger.Info("all sessions closed", zap.Int("count", len(visitors)))
}
