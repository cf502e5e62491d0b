package replica

import (
	"context"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/depend"
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
)

// buildGraph reads every task's dep_<uuid> attributes into a depend.Graph.
func buildGraph(tx *storage.Txn) (depend.Graph, map[uuid.UUID]task.Status, error) {
	g := depend.Graph{}
	statuses := map[uuid.UUID]task.Status{}
	err := tx.Tasks().ForEach(func(u uuid.UUID, attrs map[string]string) error {
		t := task.New(u, attrs)
		g[u] = t.Dependencies()
		if st, err := t.Status(); err == nil {
			statuses[u] = st
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, statuses, nil
}

// AddDependency records that id depends on dependsOn, rejecting the edit
// with errs.DependencyCycle if it would close a cycle.
func (r *Replica) AddDependency(id, dependsOn uuid.UUID) (*task.Task, error) {
	now := r.cfg.now()
	var result *task.Task
	err := r.st.Update(func(tx *storage.Txn) error {
		g, _, err := buildGraph(tx)
		if err != nil {
			return err
		}
		if err := depend.CheckAddDependency(g, id, dependsOn); err != nil {
			return err
		}
		val := "x"
		key := "dep_" + dependsOn.String()
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

// RemoveDependency clears the dep_<uuid> attribute linking id to dependsOn.
func (r *Replica) RemoveDependency(id, dependsOn uuid.UUID) (*task.Task, error) {
	key := "dep_" + dependsOn.String()
	return r.Modify(id, []task.Edit{{Property: key, Value: nil}})
}

// logDependentsAffected re-derives the reverse-dependency closure of u and
// logs its size, giving depend.Reevaluate a real call site triggered
// whenever a task completes or is deleted - the two transitions that can
// change other tasks' derived Blocked() result. Nothing here is persisted:
// blocked/blocking are always recomputed from the stored dep_<uuid>
// attributes at query time.
func (r *Replica) logDependentsAffected(u uuid.UUID) {
	var g depend.Graph
	err := r.st.View(func(tx *storage.Txn) error {
		var err error
		g, _, err = buildGraph(tx)
		return err
	})
	if err != nil {
		r.cfg.Log.Debug().Err(err).Msg("dependents reevaluation: graph read failed")
		return
	}
	affected, err := depend.Reevaluate(context.Background(), g, u)
	if err != nil {
		r.cfg.Log.Debug().Err(err).Msg("dependents reevaluation failed")
		return
	}
	r.cfg.Log.Debug().Stringer("uuid", u).Int("affected", len(affected)).Msg("dependents reevaluated")
}
