package sync

import (
	"context"

	"github.com/entro/taskrepl/op"
	"github.com/entro/taskrepl/replica"
	"github.com/entro/taskrepl/synccrypto"
)

// replicaHandle is the subset of *replica.Replica the rebase loop needs.
// Declared as an interface so the loop itself can be exercised against a
// fake in tests without a real Storage behind it.
type replicaHandle interface {
	BaseVersion() (string, error)
	LocalTail() ([]op.Op, error)
	Reconcile(remoteOps, rebasedLocal []op.Op, newBaseVersion string) error
	RecordPushSuccess(newBaseVersion string) error
}

var _ replicaHandle = (*replica.Replica)(nil)

// Engine drives one replica's sync rounds against one Client.
type Engine struct {
	client *Client
}

// NewEngine returns an Engine that syncs through client.
func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

// maxRebaseRounds bounds the pull-rebase loop so a pathologically busy
// server (or a bug producing an infinite conflict chain) cannot hang a
// sync call forever.
const maxRebaseRounds = 1000

// Sync runs the version-chain rebase algorithm to completion:
// pull and rebase against every version the server has added since this
// replica's base_version, then push the rebased local tail. A push
// conflict (another client won the race to extend the same parent) is
// itself just another round of pull-and-rebase, repeated until a push
// succeeds or there is nothing left to push.
func (e *Engine) Sync(ctx context.Context, r replicaHandle) error {
	for round := 0; round < maxRebaseRounds; round++ {
		base, err := r.BaseVersion()
		if err != nil {
			return err
		}

		childID, remoteOps, found, err := e.client.GetChildVersion(ctx, base)
		if err != nil {
			return err
		}
		if found {
			local, err := r.LocalTail()
			if err != nil {
				return err
			}
			rebased := op.RebaseTail(local, remoteOps)
			if err := r.Reconcile(remoteOps, rebased, childID); err != nil {
				return err
			}
			continue
		}

		local, err := r.LocalTail()
		if err != nil {
			return err
		}
		if len(local) == 0 {
			return nil // nothing to push, and nothing new to pull
		}

		newID, ok, conflictID, conflictOps, err := e.client.AddVersion(ctx, base, local)
		if err != nil {
			return err
		}
		if ok {
			return r.RecordPushSuccess(newID)
		}

		rebased := op.RebaseTail(local, conflictOps)
		if err := r.Reconcile(conflictOps, rebased, conflictID); err != nil {
			return err
		}
	}
	return nil
}

// Key is re-exported so callers only need to import this package and
// synccrypto's KeySize/ParseKey to configure an Engine end to end.
type Key = synccrypto.Key
