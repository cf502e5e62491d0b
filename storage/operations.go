package storage

import (
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
)

// OpLog is the "operations" logical table: an append-only ordered log keyed
// by a monotonically increasing sequence number, giving O(log n) append and
// range-scan via bbolt's B+tree cursor.
type OpLog struct {
	b *bbolt.Bucket
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k)
}

// Append adds o to the end of the log and returns its assigned sequence
// number.
func (l *OpLog) Append(o op.Op) (uint64, error) {
	seq, err := l.b.NextSequence()
	if err != nil {
		return 0, errs.Wrap("storage.OpLog.Append", errs.StorageIO, err)
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return 0, errs.Wrap("storage.OpLog.Append", errs.StorageIO, err)
	}
	if err := l.b.Put(seqKey(seq), raw); err != nil {
		return 0, errs.Wrap("storage.OpLog.Append", errs.StorageIO, err)
	}
	return seq, nil
}

// Len returns the number of operations currently in the log.
func (l *OpLog) Len() int {
	return l.b.Stats().KeyN
}

// LastSeq returns the sequence number of the most recently appended
// operation, and false if the log is empty.
func (l *OpLog) LastSeq() (uint64, bool) {
	k, _ := l.b.Cursor().Last()
	if k == nil {
		return 0, false
	}
	return seqFromKey(k), true
}

// GetRange returns every operation with sequence number in [start, end)
// (end == 0 means "to the end of the log"), in append order.
func (l *OpLog) GetRange(start, end uint64) ([]op.Op, error) {
	var ops []op.Op
	c := l.b.Cursor()
	for k, v := c.Seek(seqKey(start)); k != nil; k, v = c.Next() {
		seq := seqFromKey(k)
		if end != 0 && seq >= end {
			break
		}
		var o op.Op
		if err := json.Unmarshal(v, &o); err != nil {
			return nil, errs.Wrap("storage.OpLog.GetRange", errs.StorageCorrupt, err)
		}
		ops = append(ops, o)
	}
	return ops, nil
}

// Truncate deletes every operation with sequence number >= fromSeq. Used by
// the sync engine to rewrite the local tail after a rebase.
func (l *OpLog) Truncate(fromSeq uint64) error {
	c := l.b.Cursor()
	var toDelete [][]byte
	for k, _ := c.Seek(seqKey(fromSeq)); k != nil; k, _ = c.Next() {
		kk := make([]byte, len(k))
		copy(kk, k)
		toDelete = append(toDelete, kk)
	}
	for _, k := range toDelete {
		if err := l.b.Delete(k); err != nil {
			return errs.Wrap("storage.OpLog.Truncate", errs.StorageIO, err)
		}
	}
	return nil
}

// AppendAt appends o at an explicit sequence number, bypassing the
// auto-increment counter. Used only when rewriting a truncated tail so the
// sequence space stays contiguous with what preceded it.
func (l *OpLog) AppendAt(seq uint64, o op.Op) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return errs.Wrap("storage.OpLog.AppendAt", errs.StorageIO, err)
	}
	if err := l.b.Put(seqKey(seq), raw); err != nil {
		return errs.Wrap("storage.OpLog.AppendAt", errs.StorageIO, err)
	}
	if seq >= l.b.Sequence() {
		if err := l.b.SetSequence(seq); err != nil {
			return errs.Wrap("storage.OpLog.AppendAt", errs.StorageIO, err)
		}
	}
	return nil
}
