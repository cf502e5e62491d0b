// Package op implements Operation, the unit of change to the task store,
// and its on-disk/wire encoding. An Operation is one of Create, Update,
// Delete, or UndoPoint.
package op

import (
	"time"

	"github.com/google/uuid"
)

// Type tags which variant of Operation a record holds.
type Type string

const (
	TypeCreate Type = "Create"
	TypeUpdate Type = "Update"
	TypeDelete Type = "Delete"
	TypeUndoPoint Type = "UndoPoint"
)

// Op is the tagged-record encoding of one Operation. Fields not relevant to
// a given Type are simply left zero. Unknown fields a future version might
// add are preserved verbatim by routing encode/decode through a map-backed
// envelope - see codec.go.
type Op struct {
	Type Type `json:"type"`

	UUID uuid.UUID `json:"uuid,omitempty"`

	// Update fields.
	Property string `json:"property,omitempty"`
	Value *string `json:"value,omitempty"`
	OldValue *string `json:"old_value,omitempty"`
	// Timestamp is the replica's wall clock at the moment of mutation; used
	// as a sync tiebreak.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Delete fields: a full snapshot of the task's attributes at deletion
	// time, so the op can be inverted.
	OldTask map[string]string `json:"old_task,omitempty"`

	// Extra carries any fields this build of the code doesn't recognize,
	// so a record written by a newer version round-trips unchanged.
	Extra map[string]any `json:"-"`
}

// Create returns a Create operation for uuid u.
func Create(u uuid.UUID) Op {
	return Op{Type: TypeCreate, UUID: u}
}

// Update returns an Update operation. value == nil means "remove".
func Update(u uuid.UUID, property string, oldValue, value *string, ts time.Time) Op {
	return Op{
		Type: TypeUpdate,
		UUID: u,
		Property: property,
		Value: value,
		OldValue: oldValue,
		Timestamp: ts,
	}
}

// Delete returns a Delete operation carrying the full pre-delete snapshot.
func Delete(u uuid.UUID, oldTask map[string]string) Op {
	return Op{Type: TypeDelete, UUID: u, OldTask: oldTask}
}

// UndoPoint returns a marker operation separating undo units. It carries no
// state.
func UndoPoint() Op {
	return Op{Type: TypeUndoPoint}
}

// StrPtr is a small helper for constructing Update operations from literals.
func StrPtr(s string) *string { return &s }
