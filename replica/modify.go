package replica

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
)

// Modify applies a set of edits to an existing task as one Operation group,
// dropping no-ops via task.Builder, and returns the resulting snapshot.
func (r *Replica) Modify(id uuid.UUID, edits []task.Edit) (*task.Task, error) {
	now := r.cfg.now()
	var result *task.Task
	err := r.st.Update(func(tx *storage.Txn) error {
		before, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		b := task.NewBuilder(before)
		for _, e := range edits {
			if e.Value == nil {
				b.Remove(e.Property)
			} else {
				b.Set(e.Property, *e.Value)
			}
		}

		edits := b.Edits()
		if len(edits) == 0 {
			// Every edit was a no-op: append nothing at all, leaving
			// `modified` untouched.
			result = before
			return nil
		}

		for _, e := range edits {
			var oldPtr *string
			if old, has := before.Get(e.Property); has {
				oldPtr = &old
			}
			if err := r.appendAndApply(tx, op.Update(id, e.Property, oldPtr, e.Value, now)); err != nil {
				return err
			}
		}

		modOld, hasModOld := before.Get(task.AttrModified)
		var modOldPtr *string
		if hasModOld {
			modOldPtr = &modOld
		}
		modVal := epoch(now)
		if err := r.appendAndApply(tx, op.Update(id, task.AttrModified, modOldPtr, &modVal, now)); err != nil {
			return err
		}

		after, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		if err := reconcileWorkingSetMembership(tx, after); err != nil {
			return err
		}
		result = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reconcileWorkingSetMembership assigns or clears id's working-set slot
// after a status-changing edit, keeping the array in sync with invariant 2
// without requiring an explicit rebuild for the common case of a single
// task's status changing.
func reconcileWorkingSetMembership(tx *storage.Txn, t *task.Task) error {
	st, err := t.Status()
	if err != nil {
		return clearWorkingSetSlot(tx, t.UUID())
	}
	if st == task.StatusPending || st == task.StatusWaiting {
		return assignWorkingSetSlot(tx, t)
	}
	return clearWorkingSetSlot(tx, t.UUID())
}

// Start sets the task's start attribute to now, marking it active.
func (r *Replica) Start(id uuid.UUID) (*task.Task, error) {
	now := epoch(r.cfg.now())
	return r.Modify(id, []task.Edit{{Property: task.AttrStart, Value: &now}})
}

// Stop clears the task's start attribute.
func (r *Replica) Stop(id uuid.UUID) (*task.Task, error) {
	return r.Modify(id, []task.Edit{{Property: task.AttrStart, Value: nil}})
}

// Complete marks the task completed and stamps its end time, then
// re-derives the blocked status of every task that depends on it purely
// for observability; nothing is persisted as a result since blocked/blocking
// are always derived, never stored.
func (r *Replica) Complete(id uuid.UUID) (*task.Task, error) {
	now := epoch(r.cfg.now())
	status := string(task.StatusCompleted)
	t, err := r.Modify(id, []task.Edit{
		{Property: task.AttrStatus, Value: &status},
		{Property: task.AttrEnd, Value: &now},
	})
	if err != nil {
		return nil, err
	}
	r.logDependentsAffected(id)
	return t, nil
}

// DeleteTask removes a task entirely, recording its pre-delete snapshot so
// the deletion can later be inverted.
func (r *Replica) DeleteTask(id uuid.UUID) error {
	now := r.cfg.now()
	err := r.st.Update(func(tx *storage.Txn) error {
		before, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		if err := r.appendAndApply(tx, op.Delete(id, before.Attributes())); err != nil {
			return err
		}
		return clearWorkingSetSlot(tx, id)
	})
	if err != nil {
		return err
	}
	r.logDependentsAffected(id)
	return nil
}

// AddTag sets the presence-only tag_<name> attribute.
func (r *Replica) AddTag(id uuid.UUID, tag string) (*task.Task, error) {
	v := "x"
	return r.Modify(id, []task.Edit{{Property: "tag_" + tag, Value: &v}})
}

// RemoveTag clears the tag_<name> attribute.
func (r *Replica) RemoveTag(id uuid.UUID, tag string) (*task.Task, error) {
	return r.Modify(id, []task.Edit{{Property: "tag_" + tag, Value: nil}})
}

// AddAnnotation appends a new annotation_<epoch> attribute. epoch
// collisions (two annotations in the same second) are resolved by probing
// forward one second at a time, matching the legacy behavior of using the
// entry timestamp itself as the key.
func (r *Replica) AddAnnotation(id uuid.UUID, text string) (*task.Task, error) {
	now := r.cfg.now()
	var result *task.Task
	err := r.st.Update(func(tx *storage.Txn) error {
		before, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		secs := now.Unix()
		key := "annotation_" + strconv.FormatInt(secs, 10)
		for {
			if _, has := before.Get(key); !has {
				break
			}
			secs++
			key = "annotation_" + strconv.FormatInt(secs, 10)
		}
		val := text
		if err := r.appendAndApply(tx, op.Update(id, key, nil, &val, now)); err != nil {
			return err
		}
		result, err = loadTask(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveAnnotation removes the annotation entered at the given epoch
// second, if present.
func (r *Replica) RemoveAnnotation(id uuid.UUID, entryEpoch int64) (*task.Task, error) {
	key := "annotation_" + strconv.FormatInt(entryEpoch, 10)
	return r.Modify(id, []task.Edit{{Property: key, Value: nil}})
}
