// Package application handles application call transactions: creating a
// program instance and calling it.
package application

import (
	"encoding/json"
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/vm"
)

func init() {
	vm.Register(core.TxAppCall, handleAppCall)
}

func handleAppCall(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AppCallPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode appl payload: %w", err)
	}
	switch p.OnComplete {
	case core.OnCreate:
		return create(ctx, &p)
	case core.OnNoOp:
		return call(ctx, &p)
	default:
		return fmt.Errorf("unsupported on_complete %q", p.OnComplete)
	}
}

func create(ctx *vm.Context, p *core.AppCallPayload) error {
	if p.AppID != 0 {
		return errors.New("create must not name an app_id")
	}
	prog, err := vm.LoadProgram(p.Program)
	if err != nil {
		return err
	}
	if need := prog.Schema(); !p.Schema.Covers(need) {
		return errorsmod.Wrapf(core.ErrSchemaViolation, "declared %+v, program needs %+v", p.Schema, need)
	}

	id, err := ctx.State.NextAppID()
	if err != nil {
		return err
	}
	app := &core.Application{
		ID:           id,
		Creator:      ctx.Tx.From,
		Address:      crypto.AppAddress(id),
		Program:      p.Program,
		ProgramHash:  vm.ProgramHash(p.Program),
		Schema:       p.Schema,
		CreatedRound: ctx.Round(),
	}
	c := &vm.Call{Context: ctx, App: app, Args: p.Args}
	if err := prog.Create(c); err != nil {
		return err
	}
	after, err := checkedGlobals(prog, app)
	if err != nil {
		return err
	}
	if err := ctx.State.SetApp(app); err != nil {
		return err
	}

	ctx.Receipt.ApplicationIndex = id
	ctx.Receipt.GlobalDelta = core.DiffGlobals(nil, after)
	ctx.Emit(events.EventAppCreated, map[string]any{
		"app_id":       id,
		"creator":      app.Creator,
		"address":      app.Address,
		"program_hash": app.ProgramHash,
	})
	return nil
}

func call(ctx *vm.Context, p *core.AppCallPayload) error {
	app, err := ctx.State.GetApp(p.AppID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("application %d does not exist", p.AppID)
		}
		return err
	}
	prog, err := vm.LoadProgram(app.Program)
	if err != nil {
		return err
	}
	before, err := prog.Globals(app.Global)
	if err != nil {
		return err
	}
	c := &vm.Call{Context: ctx, App: app, Args: p.Args}
	if err := prog.Call(c); err != nil {
		return err
	}
	after, err := checkedGlobals(prog, app)
	if err != nil {
		return err
	}
	if err := ctx.State.SetApp(app); err != nil {
		return err
	}
	ctx.Receipt.GlobalDelta = core.DiffGlobals(before, after)
	return nil
}

// checkedGlobals projects the application's state and rejects it if it no
// longer fits the schema fixed at creation.
func checkedGlobals(prog vm.Program, app *core.Application) ([]core.KeyValue, error) {
	kvs, err := prog.Globals(app.Global)
	if err != nil {
		return nil, err
	}
	if used := core.SchemaUsage(kvs); !app.Schema.Covers(used) {
		return nil, errorsmod.Wrapf(core.ErrSchemaViolation, "uses %+v of %+v", used, app.Schema)
	}
	return kvs, nil
}
