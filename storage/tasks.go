package storage

import (
	"encoding/json"

	"go.etcd.io/bbolt"
	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
)

// TaskBucket is the "tasks" logical table: uuid -> attribute map.
type TaskBucket struct {
	b *bbolt.Bucket
}

// Get returns the attribute map stored for u, if present.
func (t *TaskBucket) Get(u uuid.UUID) (map[string]string, bool, error) {
	raw := t.b.Get(u[:])
	if raw == nil {
		return nil, false, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, false, errs.Wrap("storage.TaskBucket.Get", errs.StorageCorrupt, err)
	}
	return attrs, true, nil
}

// Put creates or replaces the row for u.
func (t *TaskBucket) Put(u uuid.UUID, attrs map[string]string) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return errs.Wrap("storage.TaskBucket.Put", errs.StorageIO, err)
	}
	if err := t.b.Put(u[:], raw); err != nil {
		return errs.Wrap("storage.TaskBucket.Put", errs.StorageIO, err)
	}
	return nil
}

// Delete removes the row for u, if present. It is not an error if absent.
func (t *TaskBucket) Delete(u uuid.UUID) error {
	if err := t.b.Delete(u[:]); err != nil {
		return errs.Wrap("storage.TaskBucket.Delete", errs.StorageIO, err)
	}
	return nil
}

// ForEach visits every stored task. Iteration order is key (uuid byte)
// order, which has no semantic meaning but is stable.
func (t *TaskBucket) ForEach(fn func(u uuid.UUID, attrs map[string]string) error) error {
	return t.b.ForEach(func(k, v []byte) error {
		id, err := uuid.FromBytes(k)
		if err != nil {
			return errs.Wrap("storage.TaskBucket.ForEach", errs.StorageCorrupt, err)
		}
		var attrs map[string]string
		if err := json.Unmarshal(v, &attrs); err != nil {
			return errs.Wrap("storage.TaskBucket.ForEach", errs.StorageCorrupt, err)
		}
		return fn(id, attrs)
	})
}
