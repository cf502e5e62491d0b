// Package task implements the Task data model: a uuid identity plus an
// ordered mapping of attribute name to string value, with typed accessors
// layered over the reserved attribute names.
package task

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/entro/taskrepl/errs"
)

// Status is the lifecycle attribute's enum type.
type Status string

const (
	StatusPending Status = "pending"
	StatusCompleted Status = "completed"
	StatusDeleted Status = "deleted"
	StatusRecurring Status = "recurring"
	StatusWaiting Status = "waiting"
)

// Reserved attribute names.
const (
	AttrStatus = "status"
	AttrDescription = "description"
	AttrEntry = "entry"
	AttrModified = "modified"
	AttrStart = "start"
	AttrEnd = "end"
	AttrDue = "due"
	AttrWait = "wait"
	AttrScheduled = "scheduled"
	AttrUntil = "until"
	AttrRecur = "recur"
	AttrMask = "mask"
	AttrImask = "imask"
	AttrParent = "parent"
	AttrProject = "project"
)

const (
	tagPrefix = "tag_"
	depPrefix = "dep_"
	annotationPrefix = "annotation_"
	presenceValue = "x"
)

// Task is the atomic unit of the data model: a uuid plus an attribute map.
// Values returned to callers are by-value snapshots; there is no aliasing
// between a Task and any replica-internal state.
type Task struct {
	uuid uuid.UUID
	attrs map[string]string
}

// New constructs a Task from a uuid and an attribute map. The map is copied,
// never aliased, so callers may freely mutate the map they passed in
// afterward.
func New(id uuid.UUID, attrs map[string]string) *Task {
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return &Task{uuid: id, attrs: cp}
}

// UUID returns this task's identity.
func (t *Task) UUID() uuid.UUID {
	return t.uuid
}

// Get returns the raw string value of an attribute, if present.
func (t *Task) Get(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// Attributes returns a copy of the full attribute map. Mutating the result
// has no effect on the Task.
func (t *Task) Attributes() map[string]string {
	cp := make(map[string]string, len(t.attrs))
	for k, v := range t.attrs {
		cp[k] = v
	}
	return cp
}

// Copy performs a deep copy of the task (the attribute map is duplicated).
func (t *Task) Copy() *Task {
	return New(t.uuid, t.attrs)
}

// Status returns the typed status attribute, failing BadAttributeValue if
// the stored string is not one of the five recognized values.
func (t *Task) Status() (Status, error) {
	v, ok := t.attrs[AttrStatus]
	if !ok {
		return "", errs.New("Task.Status", errs.BadAttributeValue)
	}
	switch Status(v) {
	case StatusPending, StatusCompleted, StatusDeleted, StatusRecurring, StatusWaiting:
		return Status(v), nil
	default:
		return "", errs.Wrap("Task.Status", errs.BadAttributeValue, unexpectedValue(v))
	}
}

// Description returns the description attribute.
func (t *Task) Description() string {
	return t.attrs[AttrDescription]
}

// GetDate parses one of the epoch-second date attributes (entry, modified,
// start, end, due, wait, scheduled, until). Grounded on the legacy
// ColTypeDate/ColDate column types (original_source/src/columns), which
// confirm these are decimal epoch-second strings at the semantic layer.
func (t *Task) GetDate(name string) (time.Time, bool, error) {
	v, ok := t.attrs[name]
	if !ok {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, errs.Wrap("Task.GetDate", errs.BadAttributeValue, err)
	}
	return time.Unix(secs, 0).UTC(), true, nil
}

// IsActive reports whether start is present and end is absent.
func (t *Task) IsActive() bool {
	_, hasStart := t.attrs[AttrStart]
	_, hasEnd := t.attrs[AttrEnd]
	return hasStart && !hasEnd
}

// Recur parses the recur attribute as a signed duration in seconds. Surface
// syntax ("weekly", "3d") is CLI territory and out of scope here -
// only the semantic signed-second value is handled.
func (t *Task) Recur() (time.Duration, bool, error) {
	v, ok := t.attrs[AttrRecur]
	if !ok {
		return 0, false, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, errs.Wrap("Task.Recur", errs.BadAttributeValue, err)
	}
	return time.Duration(secs) * time.Second, true, nil
}

// Tags returns the sorted list of tag names present on this task (the
// `tag_<name>` presence-only attributes, per ColTags.cpp /).
func (t *Task) Tags() []string {
	var tags []string
	for k := range t.attrs {
		if name, ok := strings.CutPrefix(k, tagPrefix); ok {
			tags = append(tags, name)
		}
	}
	sort.Strings(tags)
	return tags
}

// HasTag reports whether the given tag is present.
func (t *Task) HasTag(name string) bool {
	_, ok := t.attrs[tagPrefix+name]
	return ok
}

// Annotation is a single timestamped note.
type Annotation struct {
	Entry time.Time
	Text string
}

// Annotations returns all annotation_<epoch> attributes as a time-sorted
// slice.
func (t *Task) Annotations() []Annotation {
	var anns []Annotation
	for k, v := range t.attrs {
		suffix, ok := strings.CutPrefix(k, annotationPrefix)
		if !ok {
			continue
		}
		secs, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		anns = append(anns, Annotation{Entry: time.Unix(secs, 0).UTC(), Text: v})
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].Entry.Before(anns[j].Entry) })
	return anns
}

// Dependencies returns the uuids named by this task's dep_<uuid> attributes.
// Any suffix that fails to parse as a uuid is dropped from the result and
// surfaced through Warnings instead of failing the call outright - an
// orphan or malformed dependency is tolerated but reported, not rejected.
func (t *Task) Dependencies() []uuid.UUID {
	deps, _ := t.dependenciesAndWarnings()
	return deps
}

// Warnings reports non-fatal data issues found while projecting structured
// attributes, such as a dep_<x> key whose suffix is not a valid uuid.
func (t *Task) Warnings() []string {
	_, warnings := t.dependenciesAndWarnings()
	return warnings
}

func (t *Task) dependenciesAndWarnings() ([]uuid.UUID, []string) {
	var deps []uuid.UUID
	var warnings []string
	for k := range t.attrs {
		suffix, ok := strings.CutPrefix(k, depPrefix)
		if !ok {
			continue
		}
		id, err := uuid.Parse(suffix)
		if err != nil {
			warnings = append(warnings, "malformed dependency key "+k)
			continue
		}
		deps = append(deps, id)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].String() < deps[j].String() })
	return deps, warnings
}

// Mask returns the recurring parent's per-instance completion mask string.
func (t *Task) Mask() string {
	return t.attrs[AttrMask]
}

// Parent returns the parent uuid of a recurring child task, if set.
func (t *Task) Parent() (uuid.UUID, bool, error) {
	v, ok := t.attrs[AttrParent]
	if !ok {
		return uuid.UUID{}, false, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.UUID{}, false, errs.Wrap("Task.Parent", errs.BadAttributeValue, err)
	}
	return id, true, nil
}

type valueError struct{ v string }

func (e *valueError) Error() string { return "unexpected value " + strconv.Quote(e.v) }

func unexpectedValue(v string) error { return &valueError{v: v} }
