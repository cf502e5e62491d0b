package storage

import (
	"encoding/binary"

	"go.etcd.io/bbolt"
	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
)

// WSArray is the "working_set" logical table: an ordered sequence of
// optional<uuid>, index 0 unused, index i names the small ID i.
// Persisted so small IDs survive process restarts.
type WSArray struct {
	b *bbolt.Bucket
}

func idKey(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}

func idFromKey(k []byte) uint32 {
	return binary.BigEndian.Uint32(k)
}

// Get returns the uuid at index id, if the slot is occupied.
func (w *WSArray) Get(id uint32) (uuid.UUID, bool, error) {
	raw := w.b.Get(idKey(id))
	if raw == nil {
		return uuid.UUID{}, false, nil
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.UUID{}, false, errs.Wrap("storage.WSArray.Get", errs.StorageCorrupt, err)
	}
	return u, true, nil
}

// Set fills index id with u.
func (w *WSArray) Set(id uint32, u uuid.UUID) error {
	if err := w.b.Put(idKey(id), u[:]); err != nil {
		return errs.Wrap("storage.WSArray.Set", errs.StorageIO, err)
	}
	return nil
}

// Clear empties index id.
func (w *WSArray) Clear(id uint32) error {
	if err := w.b.Delete(idKey(id)); err != nil {
		return errs.Wrap("storage.WSArray.Clear", errs.StorageIO, err)
	}
	return nil
}

// ClearAll empties every occupied slot, used before a full renumbering
// rebuild.
func (w *WSArray) ClearAll() error {
	c := w.b.Cursor()
	var keys [][]byte
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		kk := make([]byte, len(k))
		copy(kk, k)
		keys = append(keys, kk)
	}
	for _, k := range keys {
		if err := w.b.Delete(k); err != nil {
			return errs.Wrap("storage.WSArray.ClearAll", errs.StorageIO, err)
		}
	}
	return nil
}

// MaxID returns the largest occupied index, or 0 if the array is empty.
func (w *WSArray) MaxID() uint32 {
	k, _ := w.b.Cursor().Last()
	if k == nil {
		return 0
	}
	return idFromKey(k)
}

// All returns every occupied (id, uuid) pair.
func (w *WSArray) All() (map[uint32]uuid.UUID, error) {
	out := map[uint32]uuid.UUID{}
	err := w.b.ForEach(func(k, v []byte) error {
		u, err := uuid.FromBytes(v)
		if err != nil {
			return errs.Wrap("storage.WSArray.All", errs.StorageCorrupt, err)
		}
		out[idFromKey(k)] = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
