package depend

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// muOnce guards the shared "visited" set during the concurrent
// reverse-dependency walk in Reevaluate.
type muOnce struct {
	mu sync.Mutex
}

// markVisited marks d visited and reports whether it was already visited
// (in which case the caller should not recurse into it again).
func (m *muOnce) markVisited(visited map[uuid.UUID]bool, d uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if visited[d] {
		return true
	}
	visited[d] = true
	return false
}

// runConcurrent fans out fn over items using an errgroup bound to ctx,
// adapted from the legacy source's structured-concurrency nursery package
// (github.com/shiblon/entrogo/nursery): one cancellable child context
// shared by every goroutine, first error wins and cancels the rest.
func runConcurrent(ctx context.Context, items []uuid.UUID, fn func(context.Context, uuid.UUID) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
