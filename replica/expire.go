package replica

import (
	"github.com/google/uuid"

	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
)

// ExpireTasks deletes every completed or deleted task whose end attribute
// is older than the configured ExpireHorizon. It returns the number
// of tasks expired. A zero ExpireHorizon disables expiration entirely - a
// disabled GC is itself idempotent (always expires zero tasks), so this is
// still a safe default.
func (r *Replica) ExpireTasks() (int, error) {
	if r.cfg.ExpireHorizon <= 0 {
		return 0, nil
	}
	now := r.cfg.now()
	cutoff := now.Add(-r.cfg.ExpireHorizon)
	var expired []uuid.UUID
	err := r.st.Update(func(tx *storage.Txn) error {
		var candidates []uuid.UUID
		err := tx.Tasks().ForEach(func(u uuid.UUID, attrs map[string]string) error {
			t := task.New(u, attrs)
			st, err := t.Status()
			if err != nil || (st != task.StatusCompleted && st != task.StatusDeleted) {
				return nil
			}
			end, ok, err := t.GetDate(task.AttrEnd)
			if err != nil || !ok {
				return nil
			}
			if !end.After(cutoff) {
				candidates = append(candidates, u)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, u := range candidates {
			before, err := loadTask(tx, u)
			if err != nil {
				return err
			}
			if err := r.appendAndApply(tx, op.Delete(u, before.Attributes())); err != nil {
				return err
			}
			if err := clearWorkingSetSlot(tx, u); err != nil {
				return err
			}
			expired = append(expired, u)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}
