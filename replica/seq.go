package replica

import (
	"strconv"

	"github.com/entro/taskrepl/errs"
	"github.com/entro/taskrepl/op"
)

func formatSeq(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}

func parseSeq(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.Wrap("replica.parseSeq", errs.StorageCorrupt, err)
	}
	return v, nil
}

// applyTolerant applies a remote operation during sync reconciliation,
// swallowing errs.AlreadyExists: a retried push can hand back a Create this
// replica already materialized, and the resulting state is identical either
// way.
func applyTolerant(v op.TaskView, o op.Op) error {
	err := op.Apply(v, o)
	if err != nil && errs.Is(err, errs.AlreadyExists) {
		return nil
	}
	return err
}
