package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/synccrypto"
)

func testKey(t *testing.T) synccrypto.Key {
	t.Helper()
	raw := make([]byte, synccrypto.KeySize)
	for i := range raw {
		raw[i] = byte(i * 3)
	}
	k, err := synccrypto.ParseKey(raw)
	require.NoError(t, err)
	return k
}

func TestEncodeDecodeOpsRoundTrip(t *testing.T) {
	key := testKey(t)
	u := uuid.New()
	ops := []op.Op{
		op.Create(u),
		op.Update(u, "project", nil, op.StrPtr("home"), time.Now()),
	}

	blob, err := EncodeOps(key, ops)
	require.NoError(t, err)

	got, err := DecodeOps(key, blob)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, op.TypeCreate, got[0].Type)
	assert.Equal(t, op.TypeUpdate, got[1].Type)
}

func TestEncodeOpsHandlesNilSlice(t *testing.T) {
	key := testKey(t)
	blob, err := EncodeOps(key, nil)
	require.NoError(t, err)

	got, err := DecodeOps(key, blob)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncodeDecodeSnapshotRoundTrip(t *testing.T) {
	key := testKey(t)
	u := uuid.New().String()
	snap := Snapshot{u: {"description": "buy milk", "status": "pending"}}

	blob, err := EncodeSnapshot(key, snap)
	require.NoError(t, err)

	got, err := DecodeSnapshot(key, blob)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestDecodeOpsRejectsWrongKey(t *testing.T) {
	key := testKey(t)
	blob, err := EncodeOps(key, []op.Op{op.Create(uuid.New())})
	require.NoError(t, err)

	other := testKey(t)
	other[0] ^= 0xFF
	_, err = DecodeOps(other, blob)
	assert.Error(t, err)
}
