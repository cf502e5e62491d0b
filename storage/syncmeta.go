package storage

import (
	"go.etcd.io/bbolt"

	"github.com/entro/taskrepl/errs"
)

// Well-known sync_meta keys.
const (
	MetaBaseVersion = "base_version"
	// MetaBaseVersionSeq is the operations-log sequence number reached as of
	// MetaBaseVersion: the boundary between already-synced history and the
	// local tail a future sync round must rebase or push.
	MetaBaseVersionSeq = "base_version_seq"
	MetaServerURL = "server_url"
	MetaServerKey = "server_key"
)

// MetaTable is the "sync_meta" logical table: scalar string entries.
type MetaTable struct {
	b *bbolt.Bucket
}

// Get returns the value for key, if set.
func (m *MetaTable) Get(key string) (string, bool, error) {
	raw := m.b.Get([]byte(key))
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Set stores value under key.
func (m *MetaTable) Set(key, value string) error {
	if err := m.b.Put([]byte(key), []byte(value)); err != nil {
		return errs.Wrap("storage.MetaTable.Set", errs.StorageIO, err)
	}
	return nil
}

// Delete removes key, if present.
func (m *MetaTable) Delete(key string) error {
	if err := m.b.Delete([]byte(key)); err != nil {
		return errs.Wrap("storage.MetaTable.Delete", errs.StorageIO, err)
	}
	return nil
}
