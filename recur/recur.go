// Package recur implements C8, the RecurrenceExpander: on demand,
// materializes pending child tasks from a recurring parent whose next-due
// instant has passed.
package recur

import (
	"time"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/task"
)

// ChildSpec describes one recurring-child instance to materialize. Replica
// mints the uuid and turns this into a Create plus Updates inside one
// transaction; this package never touches storage directly.
type ChildSpec struct {
	UUID uuid.UUID
	Imask int
	Due time.Time
	// Inherited carries the attributes copied from the parent: description,
	// project, tags, and any other user attribute.
	Inherited map[string]string
}

// nonInherited lists reserved attributes that must NOT be copied onto
// a child instance - everything else (including unrecognized user-defined
// attributes, per ColUDA.cpp) is inherited verbatim.
var nonInherited = map[string]bool{
	task.AttrStatus: true, task.AttrEntry: true, task.AttrModified: true,
	task.AttrStart: true, task.AttrEnd: true, task.AttrDue: true,
	task.AttrWait: true, task.AttrScheduled: true, task.AttrUntil: true,
	task.AttrRecur: true, task.AttrMask: true, task.AttrImask: true,
	task.AttrParent: true,
}

// Expand computes the child instances due as of now for a recurring parent.
// It returns the specs to materialize (possibly empty) and the parent's new
// mask value (one "-" appended per new instance's mask grammar).
// Expand is idempotent within the same "now": calling it again immediately
// with the same parent snapshot (i.e. before the caller has persisted the
// returned mask) would recompute the same instances, but a caller that
// commits the returned mask before calling again will see no further
// expansion once next_due exceeds now.
func Expand(parent *task.Task, now time.Time, mintUUID func() uuid.UUID) ([]ChildSpec, string, error) {
	st, err := parent.Status()
	if err != nil || st != task.StatusRecurring {
		return nil, parent.Mask(), errs.New("recur.Expand", errs.InvariantViolation)
	}

	due, ok, err := parent.GetDate(task.AttrDue)
	if err != nil {
		return nil, parent.Mask(), err
	}
	if !ok {
		return nil, parent.Mask(), errs.New("recur.Expand", errs.InvariantViolation)
	}

	period, ok, err := parent.Recur()
	if err != nil {
		return nil, parent.Mask(), err
	}
	if !ok || period == 0 {
		return nil, parent.Mask(), errs.New("recur.Expand", errs.InvariantViolation)
	}

	inherited := map[string]string{}
	for k, v := range parent.Attributes() {
		if nonInherited[k] {
			continue
		}
		inherited[k] = v
	}

	mask := parent.Mask()
	count := len(mask)
	nextDue := due.Add(time.Duration(count) * period)

	var specs []ChildSpec
	for !nextDue.After(now) {
		specs = append(specs, ChildSpec{
			UUID: mintUUID(),
			Imask: count,
			Due: nextDue,
			Inherited: inherited,
		})
		mask += "-"
		count++
		nextDue = due.Add(time.Duration(count) * period)
	}

	return specs, mask, nil
}
