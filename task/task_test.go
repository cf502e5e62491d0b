package task

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entro/taskrepl/errs"
)

func TestNewCopiesAttrs(t *testing.T) {
	id := uuid.New()
	attrs := map[string]string{AttrDescription: "buy milk"}
	tk := New(id, attrs)
	attrs[AttrDescription] = "mutated after New"
	assert.Equal(t, "buy milk", tk.Description())
	assert.Equal(t, id, tk.UUID())
}

func TestAttributesIsACopy(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrProject: "home"})
	out := tk.Attributes()
	out[AttrProject] = "mutated"
	again := tk.Attributes()
	assert.Equal(t, "home", again[AttrProject])
}

func TestStatusValid(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrStatus: "pending"})
	st, err := tk.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)
}

func TestStatusMissing(t *testing.T) {
	tk := New(uuid.New(), nil)
	_, err := tk.Status()
	assert.True(t, errs.Is(err, errs.BadAttributeValue))
}

func TestStatusInvalidValue(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrStatus: "bogus"})
	_, err := tk.Status()
	assert.True(t, errs.Is(err, errs.BadAttributeValue))
}

func TestGetDateRoundTrips(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	tk := New(uuid.New(), map[string]string{AttrDue: "1700000000"})
	got, ok, err := tk.GetDate(AttrDue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(now))
}

func TestGetDateAbsent(t *testing.T) {
	tk := New(uuid.New(), nil)
	_, ok, err := tk.GetDate(AttrDue)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetDateBadValue(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrDue: "not-a-number"})
	_, _, err := tk.GetDate(AttrDue)
	assert.True(t, errs.Is(err, errs.BadAttributeValue))
}

func TestIsActive(t *testing.T) {
	active := New(uuid.New(), map[string]string{AttrStart: "100"})
	assert.True(t, active.IsActive())

	stopped := New(uuid.New(), map[string]string{AttrStart: "100", AttrEnd: "200"})
	assert.False(t, stopped.IsActive())

	never := New(uuid.New(), nil)
	assert.False(t, never.IsActive())
}

func TestRecur(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrRecur: "86400"})
	d, ok, err := tk.Recur()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, d)
}

func TestTagsSortedAndPresence(t *testing.T) {
	tk := New(uuid.New(), map[string]string{
		"tag_home": "x",
		"tag_bug": "x",
	})
	assert.Equal(t, []string{"bug", "home"}, tk.Tags())
	assert.True(t, tk.HasTag("home"))
	assert.False(t, tk.HasTag("work"))
}

func TestAnnotationsSortedByTime(t *testing.T) {
	tk := New(uuid.New(), map[string]string{
		"annotation_200": "second",
		"annotation_100": "first",
	})
	anns := tk.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, "first", anns[0].Text)
	assert.Equal(t, "second", anns[1].Text)
}

func TestDependenciesSkipsMalformedAndWarns(t *testing.T) {
	good := uuid.New()
	tk := New(uuid.New(), map[string]string{
		"dep_" + good.String(): "x",
		"dep_not-a-uuid": "x",
	})
	deps := tk.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, good, deps[0])
	assert.Len(t, tk.Warnings(), 1)
}

func TestParent(t *testing.T) {
	p := uuid.New()
	tk := New(uuid.New(), map[string]string{AttrParent: p.String()})
	got, ok, err := tk.Parent()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestParentAbsent(t *testing.T) {
	tk := New(uuid.New(), nil)
	_, ok, err := tk.Parent()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopyIsIndependent(t *testing.T) {
	tk := New(uuid.New(), map[string]string{AttrProject: "home"})
	cp := tk.Copy()
	assert.Equal(t, tk.UUID(), cp.UUID())
	assert.Equal(t, tk.Attributes(), cp.Attributes())
}
