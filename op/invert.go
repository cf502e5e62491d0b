package op

import "time"

// Invert returns the inverse of o: a Create inverts to a Delete, a Delete
// inverts to the Updates that restore its snapshot, and an Update inverts
// by swapping its old and new values. now is used as the timestamp of an
// inverted Update (the inversion happens "at inverse time", not at the
// original op's time).
//
// Create's inverse needs the task's attributes *at inversion time* (it may
// have been mutated since creation), so the caller supplies currentSnapshot;
// Delete's inverse is fully self-contained since it already carries OldTask.
func Invert(o Op, now time.Time, currentSnapshot map[string]string) []Op {
	switch o.Type {
	case TypeCreate:
		return []Op{Delete(o.UUID, currentSnapshot)}
	case TypeUpdate:
		return []Op{Update(o.UUID, o.Property, o.Value, o.OldValue, now)}
	case TypeDelete:
		ops := make([]Op, 0, len(o.OldTask)+1)
		ops = append(ops, Create(o.UUID))
		for k, v := range o.OldTask {
			val := v
			ops = append(ops, Update(o.UUID, k, nil, &val, now))
		}
		return ops
	case TypeUndoPoint:
		return []Op{UndoPoint()}
	default:
		return nil
	}
}
