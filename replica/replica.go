// Package replica implements the Replica: the orchestrator that applies
// Operations to Storage transactionally and exposes task queries, wiring
// together task, op, storage, workingset, undo, depend, and recur. Every
// public method here runs to completion - commit or full rollback - before
// returning, matching a single-threaded-per-call scheduling model.
package replica

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
)

// Config configures a Replica. It is a plain struct passed in at
// construction.
type Config struct {
	// Now returns the current wall-clock time. Defaults to time.Now; tests
	// inject a fixed or stepped clock for determinism.
	Now func() time.Time
	// Urgency supplies the coefficients used by Task.Urgency.
	Urgency task.UrgencyCoefficients
	// RecurrenceHorizon is carried for the host's configuration but is not
	// read by recurrence expansion: expansion always runs until next_due
	// exceeds Now, with no cap on the number of instances per call.
	RecurrenceHorizon time.Duration
	// ExpireHorizon is how long a task may remain completed or deleted
	// before ExpireTasks garbage-collects it").
	// The source configures this through several keys with unclear
	// precedence; the core takes a single
	// host-supplied duration instead. Zero disables expiration.
	ExpireHorizon time.Duration
	Log zerolog.Logger
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Replica is one process's view of the task database.
type Replica struct {
	st *storage.Storage
	cfg Config
}

// Open opens the Storage at dir and returns a Replica over it.
func Open(dir string, cfg Config) (*Replica, error) {
	st, err := storage.Open(dir, storage.Options{Log: cfg.Log})
	if err != nil {
		return nil, err
	}
	return &Replica{st: st, cfg: cfg}, nil
}

// FromStorage wraps an already-open Storage. Used by tests and by hosts
// that manage Storage lifetime themselves.
func FromStorage(st *storage.Storage, cfg Config) *Replica {
	return &Replica{st: st, cfg: cfg}
}

// Close releases the underlying Storage.
func (r *Replica) Close() error {
	return r.st.Close()
}
