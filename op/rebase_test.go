package op

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRebaseOneDifferentUUID(t *testing.T) {
	l := Create(uuid.New())
	r := Create(uuid.New())
	got, keep := RebaseOne(l, r)
	assert.True(t, keep)
	assert.Equal(t, l, got)
}

func TestRebaseCreateVsCreateDrops(t *testing.T) {
	u := uuid.New()
	_, keep := RebaseOne(Create(u), Create(u))
	assert.False(t, keep)
}

func TestRebaseDeleteVsDeleteDrops(t *testing.T) {
	u := uuid.New()
	_, keep := RebaseOne(Delete(u, nil), Delete(u, nil))
	assert.False(t, keep)
}

func TestRebaseUpdateVsDeleteDrops(t *testing.T) {
	u := uuid.New()
	v := "x"
	_, keep := RebaseOne(Update(u, "project", nil, &v, time.Now()), Delete(u, nil))
	assert.False(t, keep)
}

func TestRebaseDeleteVsUpdateKeeps(t *testing.T) {
	u := uuid.New()
	v := "x"
	_, keep := RebaseOne(Delete(u, nil), Update(u, "project", nil, &v, time.Now()))
	assert.True(t, keep)
}

func TestRebaseUpdateDifferentPropertyKeeps(t *testing.T) {
	u := uuid.New()
	v1, v2 := "a", "b"
	l := Update(u, "project", nil, &v1, time.Now())
	r := Update(u, "description", nil, &v2, time.Now())
	got, keep := RebaseOne(l, r)
	assert.True(t, keep)
	assert.Equal(t, l, got)
}

func TestRebaseUpdateUpdateLaterLocalWins(t *testing.T) {
	u := uuid.New()
	base := time.Now()
	remoteVal, localVal := "remote", "local"
	l := Update(u, "project", nil, &localVal, base.Add(time.Hour))
	r := Update(u, "project", nil, &remoteVal, base)
	got, keep := RebaseOne(l, r)
	assert.True(t, keep)
	assert.Equal(t, "remote", *got.OldValue)
	assert.Equal(t, "local", *got.Value)
}

func TestRebaseUpdateUpdateLaterRemoteWinsDropsLocal(t *testing.T) {
	u := uuid.New()
	base := time.Now()
	remoteVal, localVal := "remote", "local"
	l := Update(u, "project", nil, &localVal, base)
	r := Update(u, "project", nil, &remoteVal, base.Add(time.Hour))
	_, keep := RebaseOne(l, r)
	assert.False(t, keep)
}

func TestRebaseUpdateUpdateTieBreaksDeterministically(t *testing.T) {
	u := uuid.New()
	ts := time.Now()
	valA, valB := "aaa", "zzz"
	l := Update(u, "project", nil, &valA, ts)
	r := Update(u, "project", nil, &valB, ts)

	got1, keep1 := RebaseOne(l, r)
	got2, keep2 := RebaseOne(l, r)
	assert.Equal(t, keep1, keep2)
	if keep1 {
		assert.Equal(t, got1, got2)
	}
}

func TestRebaseTailAppliesEveryRemoteOp(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	v := "x"
	local := []Op{
		Update(u1, "project", nil, &v, time.Now()),
		Create(u2),
	}
	remote := []Op{Delete(u1, nil)}

	out := RebaseTail(local, remote)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving op, got %d", len(out))
	}
	assert.Equal(t, u2, out[0].UUID)
}
