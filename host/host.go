package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Host runs program invocations against the persistent store.
type Host struct {
	log   *zap.Logger
	store storage.Store
	locks *keyLocks
	now   func() time.Time
}

// Invocation describes a single call into a program.
type Invocation struct {
	// Program to be invoked.
	Program util.Uint160

	// Payload is the canonical encoding of the call. Witnesses sign it.
	Payload []byte

	Witnesses []Witness

	// Unix time after which the invocation is rejected. Zero means never.
	// Witnessed payloads should carry it along with a nonce, since a
	// witnessed payload is executed at most once.
	ValidUntil int64

	// Keys are storage keys (or any other identifiers) the invocation
	// depends on. Invocations with intersecting keys never run in parallel.
	Keys [][]byte
}

// Execution is the result of the successful invocation.
type Execution struct {
	ID      uuid.UUID
	Program util.Uint160
	Signers []util.Uint160
	Events  []state.NotificationEvent
}

// New returns Host working with the given store. The store is not closed
// by the Host.
func New(st storage.Store, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}

	return &Host{
		log:   log,
		store: st,
		locks: newKeyLocks(),
		now:   time.Now,
	}
}

// Invoke verifies invocation witnesses, locks its keys and calls f. If f
// returns nil, all changes f made through Context.Store are persisted
// atomically. Otherwise they are dropped and the error of f is returned as
// is.
//
// Successfully executed witnessed payloads are recorded along with the
// changes, repeated ones fail with ErrReplayedInvocation. Invocations past
// their ValidUntil fail with ErrExpiredInvocation.
//
// Invoke waits for the keys as long as ctx allows.
func (h *Host) Invoke(ctx context.Context, inv Invocation, f func(*Context) error) (*Execution, error) {
	return h.run(ctx, inv, f, true)
}

// View is like Invoke but never persists anything.
func (h *Host) View(ctx context.Context, inv Invocation, f func(*Context) error) error {
	_, err := h.run(ctx, inv, f, false)
	return err
}

func (h *Host) run(ctx context.Context, inv Invocation, f func(*Context) error, persist bool) (*Execution, error) {
	signers, err := verifyWitnesses(inv.Payload, inv.Witnesses)
	if err != nil {
		return nil, err
	}

	if inv.ValidUntil != 0 && h.now().Unix() > inv.ValidUntil {
		return nil, fmt.Errorf("%w: valid until %d", ErrExpiredInvocation, inv.ValidUntil)
	}

	lockKeys := inv.Keys

	var rk []byte
	if len(inv.Witnesses) > 0 {
		rk = replayKey(inv.Payload)
		lockKeys = append(slices.Clip(inv.Keys), rk)
	}

	release, err := h.locks.acquire(ctx, lockKeys)
	if err != nil {
		return nil, fmt.Errorf("lock invocation keys: %w", err)
	}
	defer release()

	ic := NewContext(inv.Program, h.store, nil, signers...)
	ic.Log = h.log.With(zap.Stringer("invocation", ic.ID), zap.Stringer("program", inv.Program))

	if rk != nil {
		_, err = ic.Store.Get(rk)
		switch {
		case err == nil:
			return nil, ErrReplayedInvocation
		case !errors.Is(err, storage.ErrKeyNotFound):
			return nil, fmt.Errorf("check executed invocations: %w", err)
		}
	}

	err = f(ic)
	if err != nil {
		ic.Log.Debug("invocation failed, changes dropped", zap.Error(err))
		return nil, err
	}

	if !persist {
		return nil, nil
	}

	if rk != nil {
		ic.Store.Put(rk, encodeReplayRecord(inv.ValidUntil))
	}

	n, err := ic.Store.PersistSync()
	if err != nil {
		return nil, fmt.Errorf("persist invocation changes: %w", err)
	}

	ic.Log.Debug("invocation persisted", zap.Int("items", n), zap.Int("notifications", len(ic.events)))

	return &Execution{
		ID:      ic.ID,
		Program: inv.Program,
		Signers: signers,
		Events:  ic.events,
	}, nil
}
