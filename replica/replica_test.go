package replica

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/storage"
	"github.com/entro/taskrepl/task"
)

func openTestReplica(t *testing.T) *Replica {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(dir, storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	return FromStorage(st, Config{Now: func() time.Time { return now }})
}

func TestNewTaskRejectsEmptyDescription(t *testing.T) {
	r := openTestReplica(t)
	_, err := r.NewTask(task.StatusPending, "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadAttributeValue))
}

func TestNewTaskThenGet(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", created.Description())

	got, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "buy milk", got.Description())

	id, ok, err := r.IDByUUID(created.UUID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)
}

func TestImportTaskRejectsDuplicateUuid(t *testing.T) {
	r := openTestReplica(t)
	id := uuid.New()
	_, err := r.ImportTask(id, map[string]string{"description": "x", "status": "pending"})
	require.NoError(t, err)

	_, err = r.ImportTask(id, map[string]string{"description": "y", "status": "pending"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DuplicateUuid))
}

// TestCreateThenUndo walks this scenario: creating a task and then undoing
// removes it from the store entirely.
func TestCreateThenUndo(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	n, err := r.Undo()
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	_, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoOnEmptyLogReturnsZeroAndNothingToUndo(t *testing.T) {
	r := openTestReplica(t)
	n, err := r.Undo()
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NothingToUndo))
}

func TestUndoRespectsUndoPointBoundary(t *testing.T) {
	r := openTestReplica(t)
	first, err := r.NewTask(task.StatusPending, "first")
	require.NoError(t, err)
	require.NoError(t, r.AddUndoPoint(true))
	_, err = r.NewTask(task.StatusPending, "second")
	require.NoError(t, err)

	_, err = r.Undo()
	require.NoError(t, err)

	// "first" must survive: only the group after the undo point is undone.
	_, ok, err := r.GetTask(first.UUID())
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestRepeatedUndoProgressesBackwardThroughHistory walks this scenario:
// create A, plant an undo point, create B, then call Undo() twice in a row
// with nothing else happening in between. The first Undo removes B; the
// second must walk further back and remove A too, rather than re-undoing
// the same group again because Undo failed to close its own inverse ops
// off with a fresh undo point.
func TestRepeatedUndoProgressesBackwardThroughHistory(t *testing.T) {
	r := openTestReplica(t)
	a, err := r.NewTask(task.StatusPending, "a")
	require.NoError(t, err)
	require.NoError(t, r.AddUndoPoint(true))
	b, err := r.NewTask(task.StatusPending, "b")
	require.NoError(t, err)

	_, err = r.Undo()
	require.NoError(t, err)
	_, ok, err := r.GetTask(b.UUID())
	require.NoError(t, err)
	assert.False(t, ok, "b must be gone after the first undo")
	_, ok, err = r.GetTask(a.UUID())
	require.NoError(t, err)
	assert.True(t, ok, "a must still be present after the first undo")

	_, err = r.Undo()
	require.NoError(t, err)
	_, ok, err = r.GetTask(a.UUID())
	require.NoError(t, err)
	assert.False(t, ok, "a must be gone after the second undo")
}

// TestModifyDropsNoOpEdits walks this scenario: re-applying the same edit a
// task already has produces zero Updates and leaves `modified` untouched.
func TestModifyDropsNoOpEdits(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	proj := "home"
	updated, err := r.Modify(created.UUID(), []task.Edit{{Property: "project", Value: &proj}})
	require.NoError(t, err)
	modifiedAfterFirst, _ := updated.Get(task.AttrModified)

	again, err := r.Modify(created.UUID(), []task.Edit{{Property: "project", Value: &proj}})
	require.NoError(t, err)
	modifiedAfterSecond, _ := again.Get(task.AttrModified)

	assert.Equal(t, modifiedAfterFirst, modifiedAfterSecond)
}

func TestCompleteRemovesFromWorkingSet(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	_, err = r.Complete(created.UUID())
	require.NoError(t, err)

	_, ok, err := r.IDByUUID(created.UUID())
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	require.True(t, ok)
	st, err := got.Status()
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, st)
}

func TestDeleteTaskRemovesRow(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	require.NoError(t, r.DeleteTask(created.UUID()))

	_, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestAddDependencyRejectsCycle walks this scenario.
func TestAddDependencyRejectsCycle(t *testing.T) {
	r := openTestReplica(t)
	a, err := r.NewTask(task.StatusPending, "a")
	require.NoError(t, err)
	b, err := r.NewTask(task.StatusPending, "b")
	require.NoError(t, err)

	_, err = r.AddDependency(b.UUID(), a.UUID())
	require.NoError(t, err)

	_, err = r.AddDependency(a.UUID(), b.UUID())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DependencyCycle))
}

func TestRemoveDependencyClearsEdge(t *testing.T) {
	r := openTestReplica(t)
	a, err := r.NewTask(task.StatusPending, "a")
	require.NoError(t, err)
	b, err := r.NewTask(task.StatusPending, "b")
	require.NoError(t, err)

	_, err = r.AddDependency(b.UUID(), a.UUID())
	require.NoError(t, err)

	updated, err := r.RemoveDependency(b.UUID(), a.UUID())
	require.NoError(t, err)
	assert.Empty(t, updated.Dependencies())
}

// TestWorkingSetStableThenRenumberRebuild walks this scenario: three pending
// tasks occupy slots 1-3, the middle one completes, a stable rebuild
// leaves a hole, and a renumbering rebuild collapses it.
func TestWorkingSetStableThenRenumberRebuild(t *testing.T) {
	r := openTestReplica(t)
	t1, err := r.NewTask(task.StatusPending, "t1")
	require.NoError(t, err)
	t2, err := r.NewTask(task.StatusPending, "t2")
	require.NoError(t, err)
	t3, err := r.NewTask(task.StatusPending, "t3")
	require.NoError(t, err)

	id1, _, err := r.IDByUUID(t1.UUID())
	require.NoError(t, err)
	id2, _, err := r.IDByUUID(t2.UUID())
	require.NoError(t, err)
	id3, _, err := r.IDByUUID(t3.UUID())
	require.NoError(t, err)

	_, err = r.Complete(t2.UUID())
	require.NoError(t, err)

	require.NoError(t, r.RebuildWorkingSet(false))
	got1, ok, err := r.UUIDByID(id1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t1.UUID(), got1)

	_, ok, err = r.UUIDByID(id2)
	require.NoError(t, err)
	assert.False(t, ok)

	got3, ok, err := r.UUIDByID(id3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t3.UUID(), got3)

	require.NoError(t, r.RebuildWorkingSet(true))
	n, err := r.WorkingSetLen()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestRebuildWorkingSetOnEmptyReplicaIsNoOp(t *testing.T) {
	r := openTestReplica(t)
	require.NoError(t, r.RebuildWorkingSet(true))
	n, err := r.WorkingSetLen()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)
}

// TestAllTasksExpandsDueRecurrence walks this scenario: a recurring parent
// due yesterday yields one pending child instance when queried.
func TestAllTasksExpandsDueRecurrence(t *testing.T) {
	r := openTestReplica(t)
	yesterday := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	parent, err := r.ImportTask(uuid.New(), map[string]string{
		task.AttrStatus: string(task.StatusRecurring),
		task.AttrDescription: "pay rent",
		task.AttrDue: epoch(yesterday),
		task.AttrRecur: "86400",
	})
	require.NoError(t, err)

	all, err := r.AllTasks()
	require.NoError(t, err)

	var children int
	for _, tk := range all {
		if pid, ok, _ := tk.Parent(); ok && pid == parent.UUID() {
			children++
			st, err := tk.Status()
			require.NoError(t, err)
			assert.Equal(t, task.StatusPending, st)
		}
	}
	assert.Equal(t, 1, children)

	// Idempotent: calling again does not produce a second child.
	all2, err := r.AllTasks()
	require.NoError(t, err)
	children = 0
	for _, tk := range all2 {
		if pid, ok, _ := tk.Parent(); ok && pid == parent.UUID() {
			children++
		}
	}
	assert.Equal(t, 1, children)
}

func TestExpireTasksDisabledByDefault(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "x")
	require.NoError(t, err)
	_, err = r.Complete(created.UUID())
	require.NoError(t, err)

	n, err := r.ExpireTasks()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpireTasksDeletesOldCompletedTask(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(dir, storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	r := FromStorage(st, Config{
		Now: func() time.Time { return now },
		ExpireHorizon: 24 * time.Hour,
	})

	created, err := r.NewTask(task.StatusPending, "old task")
	require.NoError(t, err)
	status := string(task.StatusCompleted)
	endVal := epoch(now.Add(-48 * time.Hour))
	_, err = r.Modify(created.UUID(), []task.Edit{
		{Property: task.AttrStatus, Value: &status},
		{Property: task.AttrEnd, Value: &endVal},
	})
	require.NoError(t, err)

	n, err := r.ExpireTasks()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := r.GetTask(created.UUID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalTailStripsUndoPoints(t *testing.T) {
	r := openTestReplica(t)
	_, err := r.NewTask(task.StatusPending, "x")
	require.NoError(t, err)
	require.NoError(t, r.AddUndoPoint(true))

	tail, err := r.LocalTail()
	require.NoError(t, err)
	for _, o := range tail {
		assert.NotEqual(t, "UndoPoint", string(o.Type))
	}
}

func TestRecordPushSuccessAdvancesBaseVersion(t *testing.T) {
	r := openTestReplica(t)
	_, err := r.NewTask(task.StatusPending, "x")
	require.NoError(t, err)

	require.NoError(t, r.RecordPushSuccess("v1"))
	v, err := r.BaseVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	n, err := r.NumLocalChanges()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// TestAddAnnotationProbesForwardPastCollisions walks this scenario: three
// annotations added back to back under a clock that never advances (the
// fixed test clock returns the same instant every call, which is the worst
// case for the same-second collision probe). Each must land on a distinct
// annotation_<epoch> key instead of looping forever on a key that the probe
// keeps recomputing as already-taken.
func TestAddAnnotationProbesForwardPastCollisions(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	_, err = r.AddAnnotation(created.UUID(), "first")
	require.NoError(t, err)
	_, err = r.AddAnnotation(created.UUID(), "second")
	require.NoError(t, err)
	got, err := r.AddAnnotation(created.UUID(), "third")
	require.NoError(t, err)

	anns := got.Annotations()
	require.Len(t, anns, 3)
	texts := []string{anns[0].Text, anns[1].Text, anns[2].Text}
	assert.ElementsMatch(t, []string{"first", "second", "third"}, texts)
}

func TestRemoveAnnotationByEntryEpoch(t *testing.T) {
	r := openTestReplica(t)
	created, err := r.NewTask(task.StatusPending, "buy milk")
	require.NoError(t, err)

	withAnn, err := r.AddAnnotation(created.UUID(), "note")
	require.NoError(t, err)
	anns := withAnn.Annotations()
	require.Len(t, anns, 1)

	got, err := r.RemoveAnnotation(created.UUID(), anns[0].Entry.Unix())
	require.NoError(t, err)
	assert.Empty(t, got.Annotations())
}
