// Package sync implements the SyncEngine: reconciling a Replica's
// operation history with a remote sync server via a version-chain rebase
// algorithm, over an HTTP+JSON transport.
//
// Every blob that crosses the wire is compressed (klauspost/compress/zstd,
// grounded on the zstd dependency several pack manifests under
// other_examples/ pull in) and then sealed (synccrypto, NaCl secretbox) so
// the sync server only ever handles opaque bytes keyed by version id - it
// never needs to parse, and cannot read, task content.
package sync

import (
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/synccrypto"
)

// encodeBlob serializes v to JSON, compresses, and seals the result under
// key, producing the exact bytes a client sends to the sync server.
func encodeBlob(key synccrypto.Key, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap("sync.encodeBlob", errs.SyncCrypto, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errs.Wrap("sync.encodeBlob", errs.SyncCrypto, err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	return synccrypto.Seal(key, compressed)
}

// decodeBlob reverses encodeBlob into v.
func decodeBlob(key synccrypto.Key, blob []byte, v any) error {
	compressed, err := synccrypto.Open(key, blob)
	if err != nil {
		return err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return errs.Wrap("sync.decodeBlob", errs.SyncCrypto, err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return errs.Wrap("sync.decodeBlob", errs.SyncCrypto, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap("sync.decodeBlob", errs.SyncCrypto, err)
	}
	return nil
}

// EncodeOps serializes, compresses, and seals ops, producing the exact
// bytes a client POSTs to the sync server.
func EncodeOps(key synccrypto.Key, ops []op.Op) ([]byte, error) {
	if ops == nil {
		ops = []op.Op{}
	}
	return encodeBlob(key, ops)
}

// DecodeOps reverses EncodeOps.
func DecodeOps(key synccrypto.Key, blob []byte) ([]op.Op, error) {
	var ops []op.Op
	if err := decodeBlob(key, blob, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// Snapshot is a full-state view of every task, used by AddSnapshot to let a
// sync server skip replaying the whole version chain for a fresh client.
type Snapshot map[string]map[string]string

// EncodeSnapshot serializes, compresses, and seals a full-state snapshot.
func EncodeSnapshot(key synccrypto.Key, snap Snapshot) ([]byte, error) {
	return encodeBlob(key, snap)
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(key synccrypto.Key, blob []byte) (Snapshot, error) {
	var snap Snapshot
	if err := decodeBlob(key, blob, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}
