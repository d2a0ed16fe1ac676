package card

import (
	"context"
	"sync"
)

// Guard admits at most one submission per key at a time.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// LocalGuard is a process local Guard.
type LocalGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewLocalGuard constructs an empty LocalGuard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{busy: make(map[string]struct{})}
}

// TryAcquire marks key busy unless it already is.
func (g *LocalGuard) TryAcquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.busy[key]; held {
		return nil, false, nil
	}
	g.busy[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, true, nil
}
