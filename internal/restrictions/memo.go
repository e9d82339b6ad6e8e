package restrictions

import (
	"context"
	"sync"
)

type memoCtxKey struct{}

// memo caches lookups for the lifetime of one request, keyed by the
// normalized product ID set.
type memo struct {
	mu      sync.Mutex
	entries map[string]map[int64]Restriction
}

// WithMemo installs a fresh per-request memo on the context. The request
// middleware calls this once so repeated lookups within a single request
// resolve without touching redis or the network.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoCtxKey{}, &memo{entries: map[string]map[int64]Restriction{}})
}

func memoFrom(ctx context.Context) *memo {
	m, _ := ctx.Value(memoCtxKey{}).(*memo)
	return m
}

func (m *memo) get(key string) (map[int64]Restriction, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.entries[key]
	return result, ok
}

func (m *memo) put(key string, result map[int64]Restriction) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
}
