package replica

import (
	"github.com/google/uuid"

	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
	"github.com/entro/taskrepl/workingset"
)

// RebuildWorkingSet recomputes the small-ID index against the current set
// of pending/waiting tasks, first expanding any recurring
// parents whose next instance has come due. renumber selects stable (index-preserving)
// versus full renumbering rebuild semantics.
func (r *Replica) RebuildWorkingSet(renumber bool) error {
	if err := r.expandDueRecurrences(); err != nil {
		return err
	}
	return r.st.Update(func(tx *storage.Txn) error {
		var live []uuid.UUID
		err := tx.Tasks().ForEach(func(u uuid.UUID, attrs map[string]string) error {
			t := task.New(u, attrs)
			if st, err := t.Status(); err == nil && (st == task.StatusPending || st == task.StatusWaiting) {
				live = append(live, u)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return workingset.Rebuild(tx.WorkingSet(), live, renumber)
	})
}

// WorkingSetLen returns the highest occupied small ID.
func (r *Replica) WorkingSetLen() (uint32, error) {
	var n uint32
	err := r.st.View(func(tx *storage.Txn) error {
		n = workingset.Len(tx.WorkingSet())
		return nil
	})
	return n, err
}

// UUIDByID resolves a small ID to its uuid.
func (r *Replica) UUIDByID(id uint32) (uuid.UUID, bool, error) {
	var (
		u uuid.UUID
		ok bool
	)
	err := r.st.View(func(tx *storage.Txn) error {
		var err error
		u, ok, err = workingset.UUIDByID(tx.WorkingSet(), id)
		return err
	})
	return u, ok, err
}

// IDByUUID resolves a uuid to its small ID, if it currently has one.
func (r *Replica) IDByUUID(u uuid.UUID) (uint32, bool, error) {
	var (
		id uint32
		ok bool
	)
	err := r.st.View(func(tx *storage.Txn) error {
		var err error
		id, ok, err = workingset.IDByUUID(tx.WorkingSet(), u)
		return err
	})
	return id, ok, err
}
