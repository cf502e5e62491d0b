package op

// RebaseOne runs local operation l through one remote operation r. It
// returns (rewritten, keep): keep is false when l should be dropped
// entirely.
func RebaseOne(l, r Op) (Op, bool) {
	if l.UUID != r.UUID {
		return l, true
	}

	switch {
	case l.Type == TypeCreate && r.Type == TypeCreate:
		return l, false // uuid now exists remotely; drop

	case l.Type == TypeDelete && r.Type == TypeDelete:
		return l, false

	case l.Type == TypeUpdate && r.Type == TypeDelete:
		return l, false

	case l.Type == TypeDelete && r.Type == TypeUpdate:
		return l, true

	case l.Type == TypeUpdate && r.Type == TypeUpdate:
		if l.Property != r.Property {
			return l, true
		}
		return rebaseUpdateUpdate(l, r)

	default:
		return l, true
	}
}

// rebaseUpdateUpdate resolves two Updates to the same uuid/property. The
// later timestamp wins; ties are broken deterministically by comparing
// operation content so the outcome is identical on every replica that
// observes both operations.
func rebaseUpdateUpdate(l, r Op) (Op, bool) {
	switch {
	case l.Timestamp.After(r.Timestamp):
		l.OldValue = r.Value
		return l, true
	case r.Timestamp.After(l.Timestamp):
		return l, false
	default:
		// Exact tie: break by comparing the full serialized content of both
		// operations, so every replica that sees the same pair of operations
		// reaches the same verdict regardless of which one is "local".
		if contentKey(l) > contentKey(r) {
			l.OldValue = r.Value
			return l, true
		}
		return l, false
	}
}

// contentKey produces a deterministic, replica-independent ordering key for
// an Update operation, used only to break exact-timestamp ties.
func contentKey(o Op) string {
	v := ""
	if o.Value != nil {
		v = *o.Value
	}
	return o.UUID.String() + "\x00" + o.Property + "\x00" + v
}

// RebaseTail rewrites local (a whole local tail) against remote in order,
// rewriting each op in local against every op in remote. Operations
// dropped partway through are simply omitted from the result.
func RebaseTail(local, remote []Op) []Op {
	out := make([]Op, 0, len(local))
	for _, l := range local {
		keep := true
		cur := l
		for _, r := range remote {
			var k bool
			cur, k = RebaseOne(cur, r)
			if !k {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, cur)
		}
	}
	return out
}
