package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/rpschain/core"
)

var errTestKind = errorsmod.Register("confirmtest", 2, "test kind")

func pending() *core.PendingTxInfo { return &core.PendingTxInfo{} }

func confirmed(round uint64) *core.PendingTxInfo {
	return &core.PendingTxInfo{ConfirmedRound: round, Logs: [][]byte{[]byte("ok")}}
}

func status(round uint64) *core.NodeStatus { return &core.NodeStatus{LastRound: round} }

func TestWaitReturnsConfirmedImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(5), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(confirmed(5), nil)

	info, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(5), info.ConfirmedRound)
}

func TestWaitPollsRoundByRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	gomock.InOrder(
		ledger.EXPECT().Status(any).Return(status(5), nil),
		ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil),
		ledger.EXPECT().StatusAfterRound(any, uint64(5)).Return(status(6), nil),
		ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil),
		ledger.EXPECT().StatusAfterRound(any, uint64(6)).Return(status(7), nil),
		ledger.EXPECT().PendingTransaction(any, "tx1").Return(confirmed(7), nil),
	)

	info, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(7), info.ConfirmedRound)
	require.Equal(t, [][]byte{[]byte("ok")}, info.Logs)
}

func TestWaitSurfacesPoolError(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(5), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(&core.PendingTxInfo{
		PoolError:          "test kind: boom",
		PoolErrorCodespace: "confirmtest",
		PoolErrorCode:      2,
	}, nil)

	w := NewWaiter(ledger, WithKnownErrors(errTestKind))
	_, err := w.WaitForConfirmation(context.Background(), "tx1", 10)
	require.ErrorIs(t, err, ErrPoolRejected)
	require.ErrorIs(t, err, errTestKind)
	require.NotErrorIs(t, err, ErrConfirmationTimeout)

	var rej *PoolRejectedError
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "tx1", rej.TxID)
	require.Equal(t, "test kind: boom", rej.Reason)
}

func TestWaitMapsLedgerKinds(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	pe := core.NewPoolError(errorsmod.Wrap(core.ErrBadNonce, "expected 3 got 2"))
	ledger.EXPECT().Status(any).Return(status(1), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pe.RejectedInfo(), nil)

	_, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 10)
	require.ErrorIs(t, err, ErrPoolRejected)
	require.ErrorIs(t, err, core.ErrBadNonce)
}

func TestWaitUnknownKindStillRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(1), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(&core.PendingTxInfo{PoolError: "vm: unknown program"}, nil)

	_, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 10)
	require.ErrorIs(t, err, ErrPoolRejected)
	var rej *PoolRejectedError
	require.True(t, errors.As(err, &rej))
	require.Nil(t, rej.Kind)
}

func TestWaitTimesOutAfterRoundBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(100), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil).Times(3)
	ledger.EXPECT().StatusAfterRound(any, any).DoAndReturn(
		func(_ context.Context, round uint64) (*core.NodeStatus, error) {
			return status(round + 1), nil
		}).Times(3)

	_, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 3)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.NotErrorIs(t, err, ErrPoolRejected)
}

func TestWaitDefaultsToTenRounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(0), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil).Times(int(DefaultTimeoutRounds))
	ledger.EXPECT().StatusAfterRound(any, any).DoAndReturn(
		func(_ context.Context, round uint64) (*core.NodeStatus, error) {
			return status(round + 1), nil
		}).Times(int(DefaultTimeoutRounds))

	_, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 0)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestWaitSkippedRoundsCountTowardBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(10), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil)
	// The ledger jumped five rounds while we waited.
	ledger.EXPECT().StatusAfterRound(any, uint64(10)).Return(status(15), nil)

	_, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 5)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestWaitStalledRoundsDoNotSpendBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(5), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil).Times(4)
	// The ledger gives up waiting three times without a new round.
	gomock.InOrder(
		ledger.EXPECT().StatusAfterRound(any, uint64(5)).Return(status(5), nil).Times(3),
		ledger.EXPECT().StatusAfterRound(any, uint64(5)).Return(status(6), nil),
	)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(confirmed(6), nil)

	info, err := NewWaiter(ledger).WaitForConfirmation(context.Background(), "tx1", 3)
	require.NoError(t, err)
	require.Equal(t, uint64(6), info.ConfirmedRound)
}

func TestWaitStalledLedgerHitsWallClockBound(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ledger.EXPECT().Status(any).Return(status(5), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil).AnyTimes()
	ledger.EXPECT().StatusAfterRound(any, uint64(5)).DoAndReturn(
		func(ctx context.Context, _ uint64) (*core.NodeStatus, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Millisecond):
				return status(5), nil
			}
		}).AnyTimes()

	w := NewWaiter(ledger, WithMaxWait(50*time.Millisecond))
	_, err := w.WaitForConfirmation(context.Background(), "tx1", 3)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitPropagatesCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	ctx, cancel := context.WithCancel(context.Background())
	ledger.EXPECT().Status(any).Return(status(1), nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(pending(), nil)
	ledger.EXPECT().StatusAfterRound(any, uint64(1)).DoAndReturn(
		func(ctx context.Context, _ uint64) (*core.NodeStatus, error) {
			cancel()
			return nil, ctx.Err()
		})

	_, err := NewWaiter(ledger).WaitForConfirmation(ctx, "tx1", 10)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrConfirmationTimeout)
}

func newBatch(t *testing.T, n int) *core.Batch {
	t.Helper()
	txs := make([]*core.Transaction, n)
	for i := range txs {
		txs[i] = &core.Transaction{ChainID: "c", Type: core.TxPayment, From: "f", Nonce: uint64(i), Payload: []byte(`{}`)}
	}
	b, err := core.NewBatch(txs...)
	require.NoError(t, err)
	for i, tx := range b.Txs() {
		tx.ID = fmt.Sprintf("tx%d", i)
	}
	return b
}

func TestSubmitAndWaitCollectsGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()
	b := newBatch(t, 2)

	ledger.EXPECT().SendGroup(any, b.Txs()).Return("tx0", nil)
	ledger.EXPECT().Status(any).Return(status(3), nil)
	ledger.EXPECT().PendingTransaction(any, "tx0").Return(pending(), nil)
	ledger.EXPECT().StatusAfterRound(any, uint64(3)).Return(status(4), nil)
	ledger.EXPECT().PendingTransaction(any, "tx0").Return(&core.PendingTxInfo{ConfirmedRound: 4}, nil)
	ledger.EXPECT().PendingTransaction(any, "tx1").Return(&core.PendingTxInfo{
		ConfirmedRound: 4,
		Logs:           [][]byte{[]byte("bid")},
		InnerTxns:      []core.InnerTxn{{Sender: "app", Receiver: "p", Amount: 1}},
	}, nil)

	res, err := NewWaiter(ledger).SubmitAndWait(context.Background(), b, 0)
	require.NoError(t, err)
	require.Equal(t, b.ID(), res.GroupID)
	require.Equal(t, uint64(4), res.ConfirmedRound)
	require.Len(t, res.Txns, 2)
	require.Equal(t, [][]byte{[]byte("bid")}, res.Logs())
	require.Len(t, res.InnerTxns(), 1)
	require.Equal(t, res.Txns[1], res.Last())
}

func TestSubmitAndWaitSendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	b := newBatch(t, 1)

	ledger.EXPECT().SendGroup(gomock.Any(), gomock.Any()).Return("", errors.New("connection refused"))
	_, err := NewWaiter(ledger).SubmitAndWait(context.Background(), b, 0)
	require.ErrorContains(t, err, "connection refused")
}

func TestConcurrentWaitersAreIndependent(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := NewMockLedger(ctrl)
	any := gomock.Any()

	var round atomic.Uint64
	round.Store(1)
	ledger.EXPECT().Status(any).DoAndReturn(func(context.Context) (*core.NodeStatus, error) {
		return status(round.Load()), nil
	}).AnyTimes()
	ledger.EXPECT().StatusAfterRound(any, any).DoAndReturn(func(_ context.Context, r uint64) (*core.NodeStatus, error) {
		for {
			cur := round.Load()
			if cur > r {
				return status(cur), nil
			}
			round.CompareAndSwap(cur, r+1)
		}
	}).AnyTimes()
	// Transaction n confirms once the ledger reaches round n+1.
	ledger.EXPECT().PendingTransaction(any, any).DoAndReturn(func(_ context.Context, id string) (*core.PendingTxInfo, error) {
		var n uint64
		if _, err := fmt.Sscanf(id, "tx%d", &n); err != nil {
			return nil, err
		}
		if round.Load() > n {
			return confirmed(round.Load()), nil
		}
		return pending(), nil
	}).AnyTimes()

	w := NewWaiter(ledger)
	var g errgroup.Group
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("tx%d", i)
		g.Go(func() error {
			info, err := w.WaitForConfirmation(context.Background(), id, 20)
			if err != nil {
				return err
			}
			if info.ConfirmedRound == 0 {
				return fmt.Errorf("%s not confirmed", id)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
