package replica

import (
	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/undo"
)

// AddUndoPoint appends an UndoPoint marker, separating whatever has
// happened since the last one into its own undoable group. If
// force is false and the log is already empty or already ends in an
// UndoPoint, this is a no-op - repeated calls from a host that always adds
// a point around each logical command should not pile up empty groups.
func (r *Replica) AddUndoPoint(force bool) error {
	return r.st.Update(func(tx *storage.Txn) error {
		ops := tx.Operations()
		if !force {
			last, ok := ops.LastSeq()
			if !ok {
				return nil
			}
			tail, err := ops.GetRange(last, 0)
			if err != nil {
				return err
			}
			if len(tail) > 0 && tail[0].Type == op.TypeUndoPoint {
				return nil
			}
		}
		_, err := ops.Append(op.UndoPoint())
		return err
	})
}

// Undo inverts the most recent undoable group and appends its inverse ops,
// followed by a fresh UndoPoint marker so the inverse ops themselves form a
// closed group - without it, a second Undo would walk back across both the
// inverse ops just appended and the group they undid, re-inverting all of
// them together and leaving state unchanged instead of progressing further
// back through history. Returns the count of operations inverted, and
// errs.NothingToUndo if the log has nothing left to undo.
func (r *Replica) Undo() (int, error) {
	now := r.cfg.now()
	inverted := 0
	err := r.st.Update(func(tx *storage.Txn) error {
		ops := tx.Operations()
		baseSeq, err := r.baseVersionSeq(tx)
		if err != nil {
			return err
		}
		tail, err := ops.GetRange(baseSeq+1, 0)
		if err != nil {
			return err
		}
		group := undo.PlanGroup(tail)
		if group == nil {
			return errs.New("Replica.Undo", errs.NothingToUndo)
		}

		view := &taskBucketView{tb: tx.Tasks()}
		for _, o := range undo.Reversed(group) {
			var snapshot map[string]string
			if o.Type == op.TypeCreate {
				snapshot = view.Attrs(o.UUID)
			}
			for _, inv := range op.Invert(o, now, snapshot) {
				if err := r.appendAndApply(tx, inv); err != nil {
					return err
				}
				inverted++
			}
		}
		return r.appendAndApply(tx, op.UndoPoint())
	})
	if err != nil {
		return 0, err
	}
	return inverted, nil
}

// NumRevertsPossible returns how many undo groups remain in the local tail.
func (r *Replica) NumRevertsPossible() (int, error) {
	n := 0
	err := r.st.View(func(tx *storage.Txn) error {
		baseSeq, err := r.baseVersionSeq(tx)
		if err != nil {
			return err
		}
		tail, err := tx.Operations().GetRange(baseSeq+1, 0)
		if err != nil {
			return err
		}
		n = undo.CountUndoPoints(tail)
		return nil
	})
	return n, err
}
