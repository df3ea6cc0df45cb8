package host

import (
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// Context is the state of a single invocation.
type Context struct {
	// ID identifies the invocation, it becomes Execution.ID on success.
	ID uuid.UUID

	// Program is the ID of the invoked program. Derived proofs presented
	// during the invocation are resolved against it.
	Program util.Uint160

	// Store is the invocation-local view of the persistent store.
	Store *storage.MemCachedStore

	Log *zap.Logger

	signers []util.Uint160
	events  []state.NotificationEvent
}

// NewContext returns Context of the program over the given store with the
// already verified signers. Host uses it for every invocation, tests may use
// it to call programs directly.
func NewContext(program util.Uint160, st storage.Store, log *zap.Logger, signers ...util.Uint160) *Context {
	if log == nil {
		log = zap.NewNop()
	}

	return &Context{
		ID:      uuid.New(),
		Program: program,
		Store:   storage.NewMemCachedStore(st),
		Log:     log,
		signers: signers,
	}
}

// Signers returns verified signers of the invocation.
func (ic *Context) Signers() []util.Uint160 {
	return ic.signers
}

// Caller returns the first signer of the invocation. It pays for the
// accounts created during the invocation.
func (ic *Context) Caller() (util.Uint160, bool) {
	if len(ic.signers) == 0 {
		return util.Uint160{}, false
	}
	return ic.signers[0], true
}

// CheckWitness checks whether h signed the invocation.
func (ic *Context) CheckWitness(h util.Uint160) bool {
	for i := range ic.signers {
		if ic.signers[i].Equals(h) {
			return true
		}
	}
	return false
}

// Notify records a notification of the contract h.
func (ic *Context) Notify(h util.Uint160, name string, items ...stackitem.Item) {
	ic.events = append(ic.events, state.NotificationEvent{
		ScriptHash: h,
		Name:       name,
		Item:       stackitem.NewArray(items),
	})
}

// Notifications returns all notifications recorded so far.
func (ic *Context) Notifications() []state.NotificationEvent {
	return ic.events
}
