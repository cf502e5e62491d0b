// Package storage is a transactional key/value substrate holding four
// logical tables - tasks, the operations log, the working-set array, and
// sync metadata - backed by a single embedded-database file
// (go.etcd.io/bbolt), plus an OS-level lock file.
//
// Grounded on cuemby-warren's use of bbolt as a durable FSM backing store
// and on the legacy source's journal/disklog.go (goroutine owning the on-disk
// file, rotation-free here since bbolt already gives us transactional
// durability) and journal/filesystem.go's OS-level flock pattern.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rs/zerolog"

	"github.com/entro/taskrepl/errs"
)

var (
	bucketTasks = []byte("tasks")
	bucketOperations = []byte("operations")
	bucketWorkingSet = []byte("working_set")
	bucketSyncMeta = []byte("sync_meta")
)

// Options configures Open.
type Options struct {
	// Timeout bounds how long Open waits to acquire the database file lock
	// before giving up with StorageLocked. Zero means bbolt's default
	// (block forever), so a caller that wants fast failure should set this.
	Timeout time.Duration
	Log zerolog.Logger
}

// Storage is a single replica's durable substrate. Exactly one process may
// hold it open at a time.
type Storage struct {
	dir string
	db *bbolt.DB
	lock *fileLock
	log zerolog.Logger
}

// Open opens (creating if necessary) the storage directory at dir. Only one
// Storage may be open against a given directory at a time; a second attempt
// fails with errs.StorageLocked.
func Open(dir string, opts Options) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap("storage.Open", errs.StorageIO, err)
	}

	lock, err := lockFile(filepath.Join(dir, "lock"))
	if err != nil {
		return nil, errs.Wrap("storage.Open", errs.StorageLocked, err)
	}

	db, err := bbolt.Open(filepath.Join(dir, "taskrepl.db"), 0o600, &bbolt.Options{
		Timeout: opts.Timeout,
	})
	if err != nil {
		lock.unlock()
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, errs.Wrap("storage.Open", errs.StorageLocked, err)
		}
		return nil, errs.Wrap("storage.Open", errs.StorageIO, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketTasks, bucketOperations, bucketWorkingSet, bucketSyncMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		lock.unlock()
		return nil, errs.Wrap("storage.Open", errs.StorageCorrupt, err)
	}

	s := &Storage{dir: dir, db: db, lock: lock, log: opts.Log}
	s.log.Debug().Str("dir", dir).Msg("storage opened")
	return s, nil
}

// Close releases the database file and the OS-level lock.
func (s *Storage) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.unlock()
	if dbErr != nil {
		return errs.Wrap("storage.Close", errs.StorageIO, dbErr)
	}
	if lockErr != nil {
		return errs.Wrap("storage.Close", errs.StorageIO, lockErr)
	}
	return nil
}

// Dir returns the directory this Storage was opened against.
func (s *Storage) Dir() string {
	return s.dir
}

// Txn is a single transaction's view over all four tables. All reads within
// a transaction see a consistent snapshot including that transaction's own
// writes, per bbolt's MVCC semantics.
type Txn struct {
	tx *bbolt.Tx
}

func (t *Txn) Tasks() *TaskBucket {
	return &TaskBucket{b: t.tx.Bucket(bucketTasks)}
}

func (t *Txn) Operations() *OpLog {
	return &OpLog{b: t.tx.Bucket(bucketOperations)}
}

func (t *Txn) WorkingSet() *WSArray {
	return &WSArray{b: t.tx.Bucket(bucketWorkingSet)}
}

func (t *Txn) SyncMeta() *MetaTable {
	return &MetaTable{b: t.tx.Bucket(bucketSyncMeta)}
}

// Update runs fn inside a writable transaction: a returned error aborts the
// transaction so no partial writes are ever committed; a nil return
// commits. This is the begin/commit pair realized as the
// RunInTransaction-callback idiom.
func (s *Storage) Update(fn func(*Txn) error) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
	return classifyTxnError(err)
}

// View runs fn inside a read-only transaction.
func (s *Storage) View(fn func(*Txn) error) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
	return classifyTxnError(err)
}

func classifyTxnError(err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err // already classified by the callback
	}
	return errs.Wrap("storage.Txn", errs.StorageIO, err)
}
