package op

import (
	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
)

// TaskView is the minimal mutable state Apply needs: a set of existing
// uuids and their attribute maps. Storage and any in-memory replay (sync
// rebase preview, undo inversion) implement this over their own
// representations.
type TaskView interface {
	// Exists reports whether u is currently present.
	Exists(u uuid.UUID) bool
	// Attrs returns the current attribute map for u (only valid if Exists).
	Attrs(u uuid.UUID) map[string]string
	// Put creates or replaces the row for u.
	Put(u uuid.UUID, attrs map[string]string)
	// Delete removes the row for u, if present.
	Delete(u uuid.UUID)
}

// Apply applies one Operation to v:
//
// - Create: insert empty row; fails AlreadyExists if u is already present.
// - Update: upsert/remove one attribute; a missing uuid is tolerated (sync
// may reorder a Create and an Update that targets it).
// - Delete: remove the row; tolerated if already absent.
// - UndoPoint: no effect on task state.
func Apply(v TaskView, o Op) error {
	key := o.UUID

	switch o.Type {
	case TypeCreate:
		if v.Exists(key) {
			return errs.New("op.Apply", errs.AlreadyExists)
		}
		v.Put(key, map[string]string{})
		return nil

	case TypeUpdate:
		if !v.Exists(key) {
			// Tolerated: the whole task may already have been deleted by a
			// rebased/concurrent operation, making this Update a no-op.
			return nil
		}
		attrs := v.Attrs(key)
		if o.Value == nil {
			delete(attrs, o.Property)
		} else {
			attrs[o.Property] = *o.Value
		}
		v.Put(key, attrs)
		return nil

	case TypeDelete:
		v.Delete(key)
		return nil

	case TypeUndoPoint:
		return nil

	default:
		return errs.New("op.Apply", errs.InvariantViolation)
	}
}
