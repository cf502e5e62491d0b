// Package depend implements the DependencyResolver: the transitive
// blocked/blocking relation over dep_<uuid> attributes, and cycle rejection.
// Nothing here is stored - blocked and blocking are always derived from the
// tasks currently on file.
package depend

import (
	"context"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/task"
)

// StatusLookup resolves a uuid's current status, reporting false if the
// uuid does not exist in the replica (an orphan dependency, tolerated
// rather than rejected).
type StatusLookup func(uuid.UUID) (task.Status, bool)

// Blocked reports whether t is blocked: some dep_<U> attribute names a task
// whose status is not completed/deleted. An orphan dependency
// (U does not exist) does not block.
func Blocked(t *task.Task, lookup StatusLookup) bool {
	for _, dep := range t.Dependencies() {
		st, ok := lookup(dep)
		if !ok {
			continue
		}
		if st != task.StatusCompleted && st != task.StatusDeleted {
			return true
		}
	}
	return false
}

// Graph is a forward dependency index: Graph[t] lists the uuids t depends
// on. Replica builds this from the tasks bucket and hands it to the
// functions below; nothing in this package touches storage directly.
type Graph map[uuid.UUID][]uuid.UUID

// Blocking reports whether any other task depends on u.
func Blocking(g Graph, u uuid.UUID) bool {
	for t, deps := range g {
		if t == u {
			continue
		}
		for _, d := range deps {
			if d == u {
				return true
			}
		}
	}
	return false
}

// Dependents returns every task that directly depends on u.
func Dependents(g Graph, u uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for t, deps := range g {
		for _, d := range deps {
			if d == u {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// WouldCycle reports whether adding the dependency "from depends on to"
// would close a cycle: it does precisely when to's forward closure already
// contains from.
func WouldCycle(g Graph, from, to uuid.UUID) bool {
	if from == to {
		return true
	}
	seen := map[uuid.UUID]bool{}
	var walk func(uuid.UUID) bool
	walk = func(u uuid.UUID) bool {
		if u == from {
			return true
		}
		if seen[u] {
			return false
		}
		seen[u] = true
		for _, d := range g[u] {
			if walk(d) {
				return true
			}
		}
		return false
	}
	return walk(to)
}

// CheckAddDependency returns errs.DependencyCycle if adding "from depends on
// to" would close a cycle.
func CheckAddDependency(g Graph, from, to uuid.UUID) error {
	if WouldCycle(g, from, to) {
		return errs.New("depend.CheckAddDependency", errs.DependencyCycle)
	}
	return nil
}

// Reevaluate walks the reverse-dependency closure of u (every task that
// transitively depends on u, directly or through other dependents) and
// returns it as the set of tasks whose derived Blocked() may have changed
// because u just transitioned to completed/deleted.
//
// The direct dependents at each level are independent of one another (pure
// reads over an immutable snapshot of g), so they are explored concurrently
// via errgroup, joined before the result is returned - adapted from the
// legacy source's structured-concurrency nursery package
// (github.com/shiblon/entrogo/nursery). The concurrency is entirely
// internal to this one call; callers still observe a single synchronous
// result, since each public Replica call runs to completion before the
// next begins.
func Reevaluate(ctx context.Context, g Graph, u uuid.UUID) ([]uuid.UUID, error) {
	visited := make(map[uuid.UUID]bool)
	var mu muOnce
	var walk func(context.Context, uuid.UUID) error
	walk = func(ctx context.Context, u uuid.UUID) error {
		level := Dependents(g, u)
		return runConcurrent(ctx, level, func(ctx context.Context, d uuid.UUID) error {
			if mu.markVisited(visited, d) {
				return nil
			}
			return walk(ctx, d)
		})
	}
	if err := walk(ctx, u); err != nil {
		return nil, err
	}

	out := make([]uuid.UUID, 0, len(visited))
	for d := range visited {
		out = append(out, d)
	}
	return out, nil
}
