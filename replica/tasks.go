package replica

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/recur"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
	"github.com/entro/taskrepl/workingset"
)

// appendAndApply applies o to the tasks bucket and records it in the
// operations log, in that order, so a log entry is only ever durable once
// its effect on task state is too.
func (r *Replica) appendAndApply(tx *storage.Txn, o op.Op) error {
	view := &taskBucketView{tb: tx.Tasks()}
	if err := op.Apply(view, o); err != nil {
		return err
	}
	if _, err := tx.Operations().Append(o); err != nil {
		return err
	}
	return nil
}

func loadTask(tx *storage.Txn, u uuid.UUID) (*task.Task, error) {
	attrs, ok, err := tx.Tasks().Get(u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New("replica.loadTask", errs.TaskNotFound)
	}
	return task.New(u, attrs), nil
}

// assignWorkingSetSlot gives u the next free working-set index if its
// status is pending or waiting and it does not already occupy one,
// mirroring the reference implementation's behavior of adding newly
// actionable tasks to the working set as they are created rather than
// requiring an explicit rebuild before they are addressable by small ID.
func assignWorkingSetSlot(tx *storage.Txn, t *task.Task) error {
	st, err := t.Status()
	if err != nil || (st != task.StatusPending && st != task.StatusWaiting) {
		return nil
	}
	ws := tx.WorkingSet()
	if _, ok, err := workingset.IDByUUID(ws, t.UUID()); err != nil {
		return err
	} else if ok {
		return nil
	}
	return ws.Set(ws.MaxID()+1, t.UUID())
}

// clearWorkingSetSlot removes u's slot, if it has one, used when a task
// leaves the pending/waiting set (completion, deletion).
func clearWorkingSetSlot(tx *storage.Txn, u uuid.UUID) error {
	ws := tx.WorkingSet()
	id, ok, err := workingset.IDByUUID(ws, u)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return ws.Clear(id)
}

// NewTask creates a task with the given status and description, minting a
// fresh uuid, and returns the resulting snapshot.
// description must be non-empty for a user-created task; an empty one fails BadAttributeValue before any
// operation is appended.
func (r *Replica) NewTask(status task.Status, description string) (*task.Task, error) {
	if description == "" {
		return nil, errs.New("Replica.NewTask", errs.BadAttributeValue)
	}
	return r.ImportTask(uuid.New(), map[string]string{
		task.AttrStatus: string(status),
		task.AttrDescription: description,
	})
}

// ImportTask creates a task at a caller-chosen uuid with the given initial
// attributes, failing errs.DuplicateUuid if it already exists. Used both
// for ordinary creation (via NewTask) and for materializing tasks arriving
// from elsewhere (recurrence children, sync-originated creates) where the
// uuid is fixed in advance.
func (r *Replica) ImportTask(id uuid.UUID, attrs map[string]string) (*task.Task, error) {
	now := r.cfg.now()
	var result *task.Task
	err := r.st.Update(func(tx *storage.Txn) error {
		if _, ok, err := tx.Tasks().Get(id); err != nil {
			return err
		} else if ok {
			return errs.New("Replica.ImportTask", errs.DuplicateUuid)
		}

		if err := r.appendAndApply(tx, op.Create(id)); err != nil {
			return err
		}

		if _, hasEntry := attrs[task.AttrEntry]; !hasEntry {
			attrs = cloneAttrs(attrs)
			attrs[task.AttrEntry] = epoch(now)
		}
		for k, v := range attrs {
			val := v
			if err := r.appendAndApply(tx, op.Update(id, k, nil, &val, now)); err != nil {
				return err
			}
		}

		t, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		if err := assignWorkingSetSlot(tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func cloneAttrs(attrs map[string]string) map[string]string {
	cp := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}

// GetTask returns the task stored at id, if any.
func (r *Replica) GetTask(id uuid.UUID) (*task.Task, bool, error) {
	var t *task.Task
	err := r.st.View(func(tx *storage.Txn) error {
		attrs, ok, err := tx.Tasks().Get(id)
		if err != nil || !ok {
			return err
		}
		t = task.New(id, attrs)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return t, t != nil, nil
}

// AllTaskUUIDs returns every task's uuid, in storage order.
func (r *Replica) AllTaskUUIDs() ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := r.st.View(func(tx *storage.Txn) error {
		return tx.Tasks().ForEach(func(u uuid.UUID, _ map[string]string) error {
			out = append(out, u)
			return nil
		})
	})
	return out, err
}

// AllTasks returns every task currently stored, after expanding any
// recurring parents whose next instance has come due.
func (r *Replica) AllTasks() ([]*task.Task, error) {
	if err := r.expandDueRecurrences(); err != nil {
		return nil, err
	}
	var out []*task.Task
	err := r.st.View(func(tx *storage.Txn) error {
		return tx.Tasks().ForEach(func(u uuid.UUID, attrs map[string]string) error {
			out = append(out, task.New(u, attrs))
			return nil
		})
	})
	return out, err
}

// PendingTasks returns every task whose status is pending or waiting, after
// expanding due recurrences.
func (r *Replica) PendingTasks() ([]*task.Task, error) {
	all, err := r.AllTasks()
	if err != nil {
		return nil, err
	}
	var out []*task.Task
	for _, t := range all {
		if st, err := t.Status(); err == nil && (st == task.StatusPending || st == task.StatusWaiting) {
			out = append(out, t)
		}
	}
	return out, nil
}

// expandDueRecurrences materializes any pending instances of every
// recurring parent task, one storage transaction per parent, so parents
// expanded before a failing one stay committed. The first parent whose
// expansion fails stops the walk and its error is returned; later parents
// are not expanded in that call.
func (r *Replica) expandDueRecurrences() error {
	now := r.cfg.now()
	var parents []uuid.UUID
	err := r.st.View(func(tx *storage.Txn) error {
		return tx.Tasks().ForEach(func(u uuid.UUID, attrs map[string]string) error {
			if attrs[task.AttrStatus] == string(task.StatusRecurring) {
				parents = append(parents, u)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, p := range parents {
		if err := r.expandOneRecurrence(p, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replica) expandOneRecurrence(parentID uuid.UUID, now time.Time) error {
	return r.st.Update(func(tx *storage.Txn) error {
		parent, err := loadTask(tx, parentID)
		if err != nil {
			return err
		}
		specs, newMask, err := recur.Expand(parent, now, uuid.New)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			return nil
		}

		for _, spec := range specs {
			if err := r.appendAndApply(tx, op.Create(spec.UUID)); err != nil {
				return err
			}
			attrs := cloneAttrs(spec.Inherited)
			attrs[task.AttrStatus] = string(task.StatusPending)
			attrs[task.AttrEntry] = epoch(now)
			attrs[task.AttrDue] = epoch(spec.Due)
			attrs[task.AttrParent] = parentID.String()
			attrs[task.AttrImask] = strconv.Itoa(spec.Imask)
			for k, v := range attrs {
				val := v
				if err := r.appendAndApply(tx, op.Update(spec.UUID, k, nil, &val, now)); err != nil {
					return err
				}
			}
			child, err := loadTask(tx, spec.UUID)
			if err != nil {
				return err
			}
			if err := assignWorkingSetSlot(tx, child); err != nil {
				return err
			}
		}

		old := parent.Mask()
		oldPtr, newPtr := op.StrPtr(old), op.StrPtr(newMask)
		if old == "" {
			oldPtr = nil
		}
		return r.appendAndApply(tx, op.Update(parentID, task.AttrMask, oldPtr, newPtr, now))
	})
}
