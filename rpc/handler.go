package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/vm"
)

// maxRoundWait caps how long statusAfterRound holds a request open. The
// caller sees the unchanged status and asks again.
const maxRoundWait = 20 * time.Second

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State // read-only view over committed data
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler. state must not be the instance block
// production writes through.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodStatus:
		return okResponse(req.ID, h.status())

	case MethodStatusAfterRound:
		return h.statusAfterRound(ctx, req)

	case MethodSendGroup:
		return h.sendGroup(req)

	case MethodPendingTransaction:
		return h.pendingTransaction(req)

	case MethodGetAccount:
		return h.getAccount(req)

	case MethodGetApplication:
		return h.getApplication(req)

	case MethodGetBlock:
		return h.getBlock(req)

	case MethodGetGamesByPlayer:
		return h.getGamesByPlayer(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) status() *core.NodeStatus {
	st := &core.NodeStatus{ChainID: h.chainID}
	if tip := h.bc.Tip(); tip != nil {
		st.LastRound = tip.Header.Round
		st.LastBlockHash = tip.Hash
	}
	return st
}

func (h *Handler) statusAfterRound(ctx context.Context, req Request) Response {
	var params struct {
		Round uint64 `json:"round"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	wctx, cancel := context.WithTimeout(ctx, maxRoundWait)
	defer cancel()
	if _, err := h.bc.WaitForRound(wctx, params.Round); err != nil && ctx.Err() != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, h.status())
}

func (h *Handler) sendGroup(req Request) Response {
	var params SendGroupParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if len(params.Txs) == 0 {
		return errResponse(req.ID, CodeInvalidParams, "txs is required")
	}
	for i, tx := range params.Txs {
		if tx == nil {
			return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("member %d is null", i))
		}
		// Reject transactions destined for a different network to prevent
		// cross-chain replay attacks.
		if tx.ChainID != h.chainID {
			return errResponse(req.ID, CodeInvalidParams,
				fmt.Sprintf("member %d: chain ID mismatch: got %q want %q", i, tx.ChainID, h.chainID))
		}
		// Recompute the ID server-side; do not trust the client-provided value.
		tx.ID = tx.Hash()
	}
	if err := h.mempool.AddGroup(params.Txs); err != nil {
		return errResponse(req.ID, CodeRejected, err.Error())
	}
	return okResponse(req.ID, SendGroupResult{TxID: params.Txs[0].ID})
}

func (h *Handler) pendingTransaction(req Request) Response {
	var params struct {
		TxID string `json:"tx_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.TxID == "" {
		return errResponse(req.ID, CodeInvalidParams, "tx_id is required")
	}
	info, err := h.lookupTx(params.TxID)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if info == nil {
		return errResponse(req.ID, CodeNotFound, fmt.Sprintf("tx %s not found", params.TxID))
	}
	return okResponse(req.ID, info)
}

// lookupTx checks the receipt store before the pool. Block production
// commits receipts before it clears the pool, so a transaction leaving the
// pool between the two checks is caught by the second receipt read.
func (h *Handler) lookupTx(id string) (*core.PendingTxInfo, error) {
	confirmed := func() (*core.PendingTxInfo, error) {
		r, err := h.state.GetReceipt(id)
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return r.ConfirmedInfo(), nil
	}

	if info, err := confirmed(); info != nil || err != nil {
		return info, err
	}
	if tx, ok := h.mempool.Get(id); ok {
		return &core.PendingTxInfo{Txn: tx}, nil
	}
	if pe, ok := h.mempool.PoolError(id); ok {
		return pe.RejectedInfo(), nil
	}
	return confirmed()
}

func (h *Handler) getAccount(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, acc)
}

func (h *Handler) getApplication(req Request) Response {
	var params struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.ID == 0 {
		return errResponse(req.ID, CodeInvalidParams, "id is required")
	}
	app, err := h.state.GetApp(params.ID)
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeNotFound, fmt.Sprintf("application %d not found", params.ID))
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	prog, err := vm.LoadProgram(app.Program)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	kvs, err := prog.Globals(app.Global)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ApplicationView{Application: app, GlobalState: kvs})
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash  string  `json:"hash"`
		Round *uint64 `json:"round"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Round != nil {
		block, err = h.bc.GetBlockByRound(*params.Round)
	} else {
		block = h.bc.Tip()
	}
	if errors.Is(err, core.ErrNotFound) || (err == nil && block == nil) {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getGamesByPlayer(req Request) Response {
	var params struct {
		Player string `json:"player"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Player == "" {
		return errResponse(req.ID, CodeInvalidParams, "player is required")
	}
	ids, err := h.indexer.GetGamesByPlayer(params.Player)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if ids == nil {
		ids = []uint64{}
	}
	return okResponse(req.ID, ids)
}
