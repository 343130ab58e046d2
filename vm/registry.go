package vm

import (
	"encoding/json"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"

	"github.com/tolelom/rpschain/core"
)

// Handler applies one transaction's payload. Returning an error fails the
// whole group the transaction belongs to.
type Handler func(ctx *Context, payload json.RawMessage) error

// Registry routes transaction types to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.TxType]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[core.TxType]Handler)}
}

// Register binds typ to h. Registering a type twice is a wiring bug and
// panics at init time.
func (r *Registry) Register(typ core.TxType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[typ]; dup {
		panic(fmt.Sprintf("vm: transaction type %q registered twice", typ))
	}
	r.handlers[typ] = h
}

// Execute runs the handler for typ. A type no module registered fails with
// core.ErrUnknownTxType so the rejection reaches clients as a known kind.
func (r *Registry) Execute(typ core.TxType, ctx *Context, payload json.RawMessage) error {
	r.mu.RLock()
	h, ok := r.handlers[typ]
	r.mu.RUnlock()
	if !ok {
		return errorsmod.Wrapf(core.ErrUnknownTxType, "%q", typ)
	}
	return h(ctx, payload)
}

var globalRegistry = NewRegistry()

// Register adds h to the registry the Executor dispatches through. Modules
// call it from init, so importing a module package enables its types.
func Register(typ core.TxType, h Handler) {
	globalRegistry.Register(typ, h)
}
