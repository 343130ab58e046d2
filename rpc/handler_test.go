package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/internal/testutil"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/storage"
)

type fixture struct {
	handler *rpc.Handler
	mempool *core.Mempool
	bc      *core.Blockchain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.NewNopLogger()
	db := testutil.NewDB(t)
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	require.NoError(t, bc.Init())
	mp := core.NewMempool()
	idx := indexer.New(db, events.NewEmitter(logger), logger)
	return &fixture{
		handler: rpc.NewHandler(bc, mp, storage.NewStateDB(db), idx, testutil.ChainID),
		mempool: mp,
		bc:      bc,
	}
}

func (f *fixture) dispatch(t *testing.T, method string, params any) rpc.Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return f.handler.Dispatch(context.Background(), rpc.Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  raw,
	})
}

func signedPayment(t *testing.T, chainID string) *core.Transaction {
	t.Helper()
	w := testutil.NewWallet(t)
	tx, err := core.NewTransaction(chainID, core.TxPayment, w.Address(), 0, core.MinTxFee,
		core.PaymentPayload{To: w.Address(), Amount: 1})
	require.NoError(t, err)
	tx.Sign(w.PrivKey())
	return tx
}

func TestStatusOnFreshChain(t *testing.T) {
	f := newFixture(t)
	resp := f.dispatch(t, rpc.MethodStatus, struct{}{})
	require.Nil(t, resp.Error)
	st, ok := resp.Result.(*core.NodeStatus)
	require.True(t, ok, "unexpected result type %T", resp.Result)
	assert.Equal(t, testutil.ChainID, st.ChainID)
	assert.Zero(t, st.LastRound)
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture(t)
	resp := f.dispatch(t, "getBalance", struct{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
}

func TestSendGroupChecksChainID(t *testing.T) {
	f := newFixture(t)
	tx := signedPayment(t, "other-chain")
	resp := f.dispatch(t, rpc.MethodSendGroup, rpc.SendGroupParams{Txs: []*core.Transaction{tx}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
	assert.Zero(t, f.mempool.Size())
}

func TestPendingTransactionLifecycle(t *testing.T) {
	f := newFixture(t)
	tx := signedPayment(t, testutil.ChainID)

	resp := f.dispatch(t, rpc.MethodPendingTransaction, map[string]string{"tx_id": tx.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)

	resp = f.dispatch(t, rpc.MethodSendGroup, rpc.SendGroupParams{Txs: []*core.Transaction{tx}})
	require.Nil(t, resp.Error)
	assert.Equal(t, rpc.SendGroupResult{TxID: tx.ID}, resp.Result)

	resp = f.dispatch(t, rpc.MethodPendingTransaction, map[string]string{"tx_id": tx.ID})
	require.Nil(t, resp.Error)
	info := resp.Result.(*core.PendingTxInfo)
	assert.Zero(t, info.ConfirmedRound)
	assert.Empty(t, info.PoolError)
	assert.Equal(t, tx.ID, info.Txn.ID)

	f.mempool.Reject([]*core.Transaction{tx}, core.NewPoolError(core.ErrInsufficientFunds))
	resp = f.dispatch(t, rpc.MethodPendingTransaction, map[string]string{"tx_id": tx.ID})
	require.Nil(t, resp.Error)
	info = resp.Result.(*core.PendingTxInfo)
	assert.Equal(t, core.LedgerCodespace, info.PoolErrorCodespace)
	assert.Equal(t, core.ErrInsufficientFunds.ABCICode(), info.PoolErrorCode)
}

func TestGetApplicationNotFound(t *testing.T) {
	f := newFixture(t)
	resp := f.dispatch(t, rpc.MethodGetApplication, map[string]uint64{"id": 7})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)
}

func TestGetGamesByPlayerEmpty(t *testing.T) {
	f := newFixture(t)
	resp := f.dispatch(t, rpc.MethodGetGamesByPlayer, map[string]string{"player": "nobody"})
	require.Nil(t, resp.Error)
	assert.Equal(t, []uint64{}, resp.Result)
}

func TestStatusAfterRoundHonoursCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := f.handler.Dispatch(ctx, rpc.Request{
		JSONRPC: "2.0", ID: 1, Method: rpc.MethodStatusAfterRound, Params: json.RawMessage(`{"round":5}`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInternalError, resp.Error.Code)
}

func TestClientOverHTTP(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(rpc.NewServer("", f.handler, "s3cret", log.NewNopLogger()).HTTPHandler())
	defer srv.Close()
	ctx := context.Background()

	st, err := rpc.NewClient(srv.URL, "s3cret").Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.ChainID, st.ChainID)

	_, err = rpc.NewClient(srv.URL, "wrong").Status(ctx)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)

	c := rpc.NewClient(srv.URL, "s3cret")
	tx := signedPayment(t, testutil.ChainID)
	id, err := c.SendGroup(ctx, []*core.Transaction{tx})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, id)

	info, err := c.PendingTransaction(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, info.ConfirmedRound)
	assert.Equal(t, tx.From, info.Txn.From)

	acc, err := c.GetAccount(ctx, tx.From)
	require.NoError(t, err)
	assert.Zero(t, acc.Balance)
}
