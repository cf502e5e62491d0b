package task

// Edit is one pending attribute change accumulated by a Builder. Value nil
// means "remove this attribute"; a non-nil pointer means "set it to this
// string" (mirrors op.Update's value/old_value optionality).
type Edit struct {
	Property string
	Value *string
}

// Builder accumulates Set/Remove calls against a task's current attributes
// without touching Storage - mutation always goes through Replica.
// Replica.Modify reads the current Task, hands the caller (or itself) a
// Builder, and turns the accumulated Edits into Operations.
type Builder struct {
	base *Task
	edits []Edit
}

// NewBuilder starts a Builder over a snapshot of an existing task's
// attributes.
func NewBuilder(base *Task) *Builder {
	return &Builder{base: base}
}

// Set stages setting name to value.
func (b *Builder) Set(name, value string) *Builder {
	v := value
	b.edits = append(b.edits, Edit{Property: name, Value: &v})
	return b
}

// Remove stages removing name.
func (b *Builder) Remove(name string) *Builder {
	b.edits = append(b.edits, Edit{Property: name, Value: nil})
	return b
}

// Edits returns the accumulated edits with no-ops dropped: an edit whose
// value already matches the base task's current value for that attribute
// produces no Update.
func (b *Builder) Edits() []Edit {
	var out []Edit
	for _, e := range b.edits {
		cur, has := b.base.Get(e.Property)
		switch {
		case e.Value == nil && !has:
			continue // removing an already-absent attribute is a no-op
		case e.Value != nil && has && cur == *e.Value:
			continue // setting to the current value is a no-op
		default:
			out = append(out, e)
		}
	}
	return out
}
