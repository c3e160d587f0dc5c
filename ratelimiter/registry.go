package ratelimiter

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Registry owns one Counter per composite (operation, client) key. Lookups
// are get-or-insert: even when several goroutines race on a key's first
// request, exactly one Counter is installed and every caller gets it.
//
// Entries are never evicted. The key space is bounded by distinct routes
// times distinct clients seen, which is acceptable for this design; callers
// with very high client cardinality should front this with their own TTL.
type Registry struct {
	counters sync.Map // string -> *Counter
	size     atomic.Int64
}

// NewRegistry creates an empty registry. One registry is created at process
// start and lives for the process lifetime; it is injected into the
// middleware rather than reached through a package global.
func NewRegistry() *Registry {
	return &Registry{}
}

// Key builds the deterministic composite key for one (operation, client)
// pair. Identical pairs always map to the identical key string.
func Key(operation, client string) string {
	return operation + "|" + client
}

// Get returns the Counter for key, creating it with the given capacity and
// window on first use. The capacity and window are fixed at creation; later
// calls with different values reuse the existing counter unchanged.
func (r *Registry) Get(key string, capacity int, window time.Duration) *Counter {
	if v, ok := r.counters.Load(key); ok {
		return v.(*Counter)
	}
	created := NewCounter(capacity, window)
	v, loaded := r.counters.LoadOrStore(key, created)
	if !loaded {
		r.size.Inc()
	}
	return v.(*Counter)
}

// Len returns the number of live counters.
func (r *Registry) Len() int {
	return int(r.size.Load())
}
