package replica

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/storage"
)

// taskBucketView adapts storage.TaskBucket to op.TaskView for the duration
// of one transaction. Errors from the underlying bucket are folded into
// Exists()==false / Attrs()==nil; Apply's callers always hold a live
// transaction, so a read failure here means the database file itself is
// corrupt, which Replica's own Get/Put calls elsewhere in the same
// transaction will also hit and surface properly.
type taskBucketView struct {
	tb *storage.TaskBucket
}

func (v *taskBucketView) Exists(u uuid.UUID) bool {
	_, ok, _ := v.tb.Get(u)
	return ok
}

func (v *taskBucketView) Attrs(u uuid.UUID) map[string]string {
	attrs, _, _ := v.tb.Get(u)
	return attrs
}

func (v *taskBucketView) Put(u uuid.UUID, attrs map[string]string) {
	_ = v.tb.Put(u, attrs)
}

func (v *taskBucketView) Delete(u uuid.UUID) {
	_ = v.tb.Delete(u)
}

// epoch formats t as the decimal epoch-second string the Task data model
// stores for its date attributes.
func epoch(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
