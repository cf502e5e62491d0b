// Package workingset implements C6: the dense integer index mapping small
// IDs to currently pending/waiting task uuids. The array itself
// is persisted in storage.WSArray; this package holds the rebuild algorithm
// and the lookup helpers layered over it.
package workingset

import (
	"github.com/google/uuid"

	"github.com/entro/taskrepl/storage"
)

// Rebuild recomputes the working set against the given live uuids (the
// tasks currently in status pending or waiting).
//
// If renumber is false, every uuid that already occupies a slot and is
// still live keeps its slot; uuids newly live since the last rebuild are
// appended starting just past the highest existing index. Slots whose
// occupant is no longer live are cleared. If renumber is true, the whole
// array is cleared and rebuilt as a dense 1..n sequence in uuid order.
func Rebuild(ws *storage.WSArray, live []uuid.UUID, renumber bool) error {
	liveSet := make(map[uuid.UUID]bool, len(live))
	for _, u := range live {
		liveSet[u] = true
	}

	if renumber {
		return renumberRebuild(ws, live)
	}
	return stableRebuild(ws, liveSet)
}

func stableRebuild(ws *storage.WSArray, live map[uuid.UUID]bool) error {
	existing, err := ws.All()
	if err != nil {
		return err
	}

	stillLive := make(map[uuid.UUID]bool, len(existing))
	maxID := uint32(0)
	for id, u := range existing {
		if id > maxID {
			maxID = id
		}
		if live[u] {
			stillLive[u] = true
			continue
		}
		if err := ws.Clear(id); err != nil {
			return err
		}
	}

	next := maxID + 1
	for u := range live {
		if stillLive[u] {
			continue
		}
		if err := ws.Set(next, u); err != nil {
			return err
		}
		next++
	}
	return nil
}

func renumberRebuild(ws *storage.WSArray, live []uuid.UUID) error {
	if err := ws.ClearAll(); err != nil {
		return err
	}
	ordered := make([]uuid.UUID, len(live))
	copy(ordered, live)
	sortUUIDs(ordered)

	for i, u := range ordered {
		if err := ws.Set(uint32(i+1), u); err != nil {
			return err
		}
	}
	return nil
}

func sortUUIDs(ids []uuid.UUID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1].String() > ids[j].String(); j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// UUIDByID looks up the uuid occupying small ID id.
func UUIDByID(ws *storage.WSArray, id uint32) (uuid.UUID, bool, error) {
	return ws.Get(id)
}

// IDByUUID performs the reverse lookup: the small ID currently assigned to
// u, if any. This is a linear scan over the array - the working set is
// expected to be small (it holds only actionable tasks), so this matches
// the legacy source's tqueue.PeekById approach of a map-assisted but otherwise
// simple structure rather than introducing a second persisted index.
func IDByUUID(ws *storage.WSArray, u uuid.UUID) (uint32, bool, error) {
	all, err := ws.All()
	if err != nil {
		return 0, false, err
	}
	for id, candidate := range all {
		if candidate == u {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// Len returns the highest occupied index (the nominal length of the dense
// array, including any holes left by a non-renumbering rebuild).
func Len(ws *storage.WSArray) uint32 {
	return ws.MaxID()
}
