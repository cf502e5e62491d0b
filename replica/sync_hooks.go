// This file exposes the narrow surface the sync package's rebase loop
// needs from a Replica: the local tail of unsynced operations, the current
// base_version marker, and the two ways a sync round concludes (a
// successful push, or a rebase against a divergent remote history).
package replica

import (
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/storage"
)

// baseVersionSeq returns the operations-log sequence number recorded
// alongside the current base_version, or 0 if no sync has ever happened
// (meaning the whole log is local tail).
func (r *Replica) baseVersionSeq(tx *storage.Txn) (uint64, error) {
	raw, ok, err := tx.SyncMeta().Get(storage.MetaBaseVersionSeq)
	if err != nil || !ok {
		return 0, err
	}
	return parseSeq(raw)
}

// BaseVersion returns the sync server version id this replica last
// reconciled against, or "" if it has never synced.
func (r *Replica) BaseVersion() (string, error) {
	var v string
	err := r.st.View(func(tx *storage.Txn) error {
		got, _, err := tx.SyncMeta().Get(storage.MetaBaseVersion)
		v = got
		return err
	})
	return v, err
}

// LocalTail returns every operation appended since base_version, with
// UndoPoint markers stripped: these are local-only bookkeeping and are
// never part of the history exchanged with a sync server.
func (r *Replica) LocalTail() ([]op.Op, error) {
	var out []op.Op
	err := r.st.View(func(tx *storage.Txn) error {
		baseSeq, err := r.baseVersionSeq(tx)
		if err != nil {
			return err
		}
		tail, err := tx.Operations().GetRange(baseSeq+1, 0)
		if err != nil {
			return err
		}
		for _, o := range tail {
			if o.Type != op.TypeUndoPoint {
				out = append(out, o)
			}
		}
		return nil
	})
	return out, err
}

// NumLocalChanges returns len(LocalTail()), computed by loading the local
// tail itself; used to decide whether a sync round has anything to push at
// all.
func (r *Replica) NumLocalChanges() (int, error) {
	tail, err := r.LocalTail()
	if err != nil {
		return 0, err
	}
	return len(tail), nil
}

// RecordPushSuccess is called once the sync server has accepted this
// replica's entire local tail as the child of base_version: the tail is
// already durable in the operations log exactly as pushed, so only the
// sync_meta bookkeeping advances.
func (r *Replica) RecordPushSuccess(newBaseVersion string) error {
	return r.st.Update(func(tx *storage.Txn) error {
		last, ok := tx.Operations().LastSeq()
		if !ok {
			last = 0
		}
		if err := tx.SyncMeta().Set(storage.MetaBaseVersion, newBaseVersion); err != nil {
			return err
		}
		return tx.SyncMeta().Set(storage.MetaBaseVersionSeq, formatSeq(last))
	})
}

// Reconcile applies one step of the rebase loop: remoteOps (the
// operations the server's child version added beyond base_version) are
// applied to local task state, and the local tail is rewritten in place to
// rebasedLocal - the result of running op.RebaseTail(LocalTail(), remoteOps)
// - before base_version advances to newBaseVersion. Doing this in one
// transaction means a crash between receiving remote history and recording
// the new base_version leaves the replica exactly where it started, so the
// next sync attempt simply redoes this step.
func (r *Replica) Reconcile(remoteOps, rebasedLocal []op.Op, newBaseVersion string) error {
	return r.st.Update(func(tx *storage.Txn) error {
		baseSeq, err := r.baseVersionSeq(tx)
		if err != nil {
			return err
		}

		view := &taskBucketView{tb: tx.Tasks()}
		for _, o := range remoteOps {
			if err := applyTolerant(view, o); err != nil {
				return err
			}
		}

		if err := tx.Operations().Truncate(baseSeq + 1); err != nil {
			return err
		}
		seq := baseSeq + 1
		for _, o := range remoteOps {
			if err := tx.Operations().AppendAt(seq, o); err != nil {
				return err
			}
			seq++
		}
		// newBaseVersion covers exactly the history through remoteOps;
		// rebasedLocal is the replica's new (still-unsynced) local tail.
		newBaseSeq := seq - 1
		for _, o := range rebasedLocal {
			if err := tx.Operations().AppendAt(seq, o); err != nil {
				return err
			}
			seq++
		}

		if err := tx.SyncMeta().Set(storage.MetaBaseVersion, newBaseVersion); err != nil {
			return err
		}
		return tx.SyncMeta().Set(storage.MetaBaseVersionSeq, formatSeq(newBaseSeq))
	})
}
