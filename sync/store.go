package sync

import (
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/entro/taskrepl/errs"
)

var (
	bucketChildren = []byte("children") // parent version id -> child version id
	bucketOps = []byte("ops") // version id -> opaque sealed ops blob
	bucketSnapshots = []byte("snapshots") // version id -> opaque sealed snapshot blob
)

// rootVersion is the well-known parent id of the first version ever added;
// a Replica that has never synced reports BaseVersion() == "" and that
// maps directly onto this key.
const rootVersion = ""

// VersionStore is the sync server's durable version chain: for each parent
// version it remembers at most one child (the first one a client
// successfully pushed), so two clients racing to extend the same parent
// produce one winner and one conflict. It never parses the
// blobs it stores.
type VersionStore struct {
	db *bbolt.DB
}

// OpenVersionStore opens (creating if necessary) the version-chain database
// at path.
func OpenVersionStore(path string) (*VersionStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.Wrap("sync.OpenVersionStore", errs.StorageIO, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChildren, bucketOps, bucketSnapshots} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap("sync.OpenVersionStore", errs.StorageCorrupt, err)
	}
	return &VersionStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *VersionStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errs.Wrap("sync.VersionStore.Close", errs.StorageIO, err)
	}
	return nil
}

// ChildOf returns the child version (and its sealed ops blob) recorded
// against parent, if any.
func (s *VersionStore) ChildOf(parent string) (childID string, blob []byte, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketChildren).Get([]byte(parent))
		if c == nil {
			return nil
		}
		ok = true
		childID = string(c)
		raw := tx.Bucket(bucketOps).Get(c)
		blob = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return "", nil, false, errs.Wrap("sync.VersionStore.ChildOf", errs.StorageIO, err)
	}
	return childID, blob, ok, nil
}

// AddVersion attempts to record blob as the child of parent. If parent
// already has a child, the attempt fails and the existing child's id and
// blob are returned instead so the caller can rebase against it.
func (s *VersionStore) AddVersion(parent string, blob []byte) (newChildID string, ok bool, conflictID string, conflictBlob []byte, err error) {
	err = s.db.Update(func(tx *bbolt.Tx) error {
		children := tx.Bucket(bucketChildren)
		if existing := children.Get([]byte(parent)); existing != nil {
			conflictID = string(existing)
			conflictBlob = append([]byte(nil), tx.Bucket(bucketOps).Get(existing)...)
			return nil
		}
		newChildID = uuid.New().String()
		if err := children.Put([]byte(parent), []byte(newChildID)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketOps).Put([]byte(newChildID), blob); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return "", false, "", nil, errs.Wrap("sync.VersionStore.AddVersion", errs.StorageIO, err)
	}
	return newChildID, ok, conflictID, conflictBlob, nil
}

// AddSnapshot stores blob as the full-state snapshot for version.
func (s *VersionStore) AddSnapshot(version string, blob []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(version), blob)
	})
	if err != nil {
		return errs.Wrap("sync.VersionStore.AddSnapshot", errs.StorageIO, err)
	}
	return nil
}
