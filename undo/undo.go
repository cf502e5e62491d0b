// Package undo implements C5, the UndoEngine: grouping the operations log's
// tail by UndoPoint and inverting one group per call.
package undo

import "github.com/entro/taskrepl/op"

// PlanGroup scans logTail (the full ordered operations log, oldest first)
// and returns the most recent undoable group: any trailing UndoPoint is
// skipped, then operations are collected back to (but not including) the
// next UndoPoint, or the log head. The returned slice is in original
// chronological order; the caller inverts it newest-first. A nil result means there is nothing left to undo.
func PlanGroup(logTail []op.Op) []op.Op {
	end := len(logTail)
	if end > 0 && logTail[end-1].Type == op.TypeUndoPoint {
		end--
	}
	start := end
	for start > 0 && logTail[start-1].Type != op.TypeUndoPoint {
		start--
	}
	if start == end {
		return nil
	}
	out := make([]op.Op, end-start)
	copy(out, logTail[start:end])
	return out
}

// Reversed returns group in reverse (most-recent-first) order, the order in
// which step 3 says inverses must be emitted.
func Reversed(group []op.Op) []op.Op {
	out := make([]op.Op, len(group))
	for i, o := range group {
		out[len(group)-1-i] = o
	}
	return out
}

// CountUndoPoints counts the UndoPoint markers in logTail, which is exactly
// num_reverts_possible when logTail is the slice of operations between the
// log tail and base_version.
func CountUndoPoints(logTail []op.Op) int {
	n := 0
	for _, o := range logTail {
		if o.Type == op.TypeUndoPoint {
			n++
		}
	}
	return n
}
