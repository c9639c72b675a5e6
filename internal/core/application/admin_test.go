package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Debit(ctx context.Context, asset, account string, amount uint64) error {
	args := m.Called(ctx, asset, account, amount)
	return args.Error(0)
}

func (m *mockLedger) Credit(ctx context.Context, asset, account string, amount uint64) error {
	args := m.Called(ctx, asset, account, amount)
	return args.Error(0)
}

func (m *mockLedger) Mint(ctx context.Context, asset, account string, amount uint64) error {
	args := m.Called(ctx, asset, account, amount)
	return args.Error(0)
}

func (m *mockLedger) BalanceOf(ctx context.Context, asset, account string) (uint64, error) {
	args := m.Called(ctx, asset, account)
	return args.Get(0).(uint64), args.Error(1)
}

func TestCollectFees(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		_, err := env.admin.CollectFees(ctx, manager, usdc)
		requireCode(t, errors.ZERO_AMOUNT, err)

		var expectedFees uint64
		for _, amount := range []uint64{2000, 5000, 123456} {
			tx := env.initiate(t, amount)
			expectedFees += tx.Fee
		}
		require.Equal(t, uint64(2+5+123), expectedFees)

		balance, err := env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Equal(t, expectedFees, balance)

		collected, err := env.admin.CollectFees(ctx, manager, usdc)
		require.NoError(t, err)
		require.Equal(t, expectedFees, collected)
		require.Equal(t, expectedFees, env.balance(t, usdc, collector))
		require.Equal(t, ports.FeesCollected, <-env.alerts.topics)

		balance, err = env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Zero(t, balance)

		_, err = env.admin.CollectFees(ctx, manager, usdc)
		requireCode(t, errors.ZERO_AMOUNT, err)
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, nil, false)
		env.initiate(t, 5000)

		_, err := env.admin.CollectFees(ctx, alice, usdc)
		requireCode(t, errors.UNAUTHORIZED, err)

		_, err = env.admin.CollectFees(ctx, manager, dai)
		requireCode(t, errors.NOT_LISTED, err)

		balance, err := env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Equal(t, uint64(5), balance)
	})

	t.Run("release failure", func(t *testing.T) {
		ledger := &mockLedger{}
		ledger.On("BalanceOf", mock.Anything, usdc, alice).Return(initialBalance, nil)
		ledger.On("Debit", mock.Anything, usdc, alice, uint64(5000)).Return(nil)
		ledger.On("Credit", mock.Anything, usdc, collector, uint64(5)).
			Return(fmt.Errorf("ledger unavailable"))
		env := newTestEnv(t, ledger, false)

		env.initiate(t, 5000)

		_, err := env.admin.CollectFees(ctx, manager, usdc)
		requireCode(t, errors.INTERNAL_ERROR, err)

		balance, err := env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Equal(t, uint64(5), balance)
		ledger.AssertExpectations(t)
	})
}

func TestUpdateFeeCollector(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	requireCode(t, errors.ZERO_ADDRESS, env.admin.UpdateFeeCollector(ctx, manager, " "))
	requireCode(t, errors.UNAUTHORIZED, env.admin.UpdateFeeCollector(ctx, pauser, "treasury"))

	require.NoError(t, env.admin.UpdateFeeCollector(ctx, manager, "treasury"))
	settings, err := env.svc.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "treasury", settings.FeeCollector)

	env.initiate(t, 10000)
	collected, err := env.admin.CollectFees(ctx, manager, usdc)
	require.NoError(t, err)
	require.Equal(t, uint64(10), collected)
	require.Equal(t, uint64(10), env.balance(t, usdc, "treasury"))
	require.Zero(t, env.balance(t, usdc, collector))
}

func TestUpdateParameter(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	fixtures := []struct {
		name  string
		param string
		value uint64
	}{
		{"unknown parameter", "maxAmount", 1},
		{"fee above 100%", domain.ParamFeeBasisPoints, domain.MaxFeeBasisPoints + 1},
		{"zero timeout", domain.ParamTransactionTimeout, 0},
		{"zero confirmations", domain.ParamRequiredConfirmations, 0},
		{"zero rate limit", domain.ParamHourlyTransactionLimit, 0},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			err := env.admin.UpdateParameter(ctx, manager, f.param, f.value)
			requireCode(t, errors.INVALID_PARAMETER, err)
		})
	}

	err := env.admin.UpdateParameter(ctx, relayers[0], domain.ParamFeeBasisPoints, 50)
	requireCode(t, errors.UNAUTHORIZED, err)

	settings, err := env.svc.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultFeeBasisPoints, settings.FeeBasisPoints)

	require.NoError(t, env.admin.UpdateParameter(ctx, manager, domain.ParamFeeBasisPoints, 50))
	require.Equal(t, ports.ParameterUpdated, <-env.alerts.topics)
	require.NoError(t, env.admin.UpdateParameter(ctx, manager, domain.ParamChallengeThreshold, 0))
	require.Equal(t, ports.ParameterUpdated, <-env.alerts.topics)

	// Every amount needs confirmations once the threshold is zero.
	tx := env.initiate(t, 100)
	require.Equal(t, domain.TxStatusPending, tx.Status)
	require.Equal(t, uint64(0), tx.Fee)

	tx = env.initiate(t, 1000)
	require.Equal(t, uint64(5), tx.Fee)
	require.Equal(t, uint64(995), tx.Amount)

	require.NoError(t, env.admin.UpdateParameter(ctx, manager, domain.ParamRequiredConfirmations, 1))
	confirmed, err := env.svc.ConfirmOutbound(ctx, relayers[0], tx.Id)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusCompleted, confirmed.Status)
}

func TestAbortTransaction(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	t.Run("outbound", func(t *testing.T) {
		tx := env.initiate(t, 2000)
		require.Equal(t, initialBalance-2000, env.balance(t, usdc, alice))

		_, err := env.admin.AbortTransaction(ctx, relayers[0], tx.Id, "stuck")
		requireCode(t, errors.UNAUTHORIZED, err)

		aborted, err := env.admin.AbortTransaction(ctx, manager, tx.Id, "stuck")
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusFailed, aborted.Status)
		require.Equal(t, "stuck", aborted.FailReason)
		require.Equal(t, ports.TransactionAborted, <-env.alerts.topics)

		// The net amount is refunded, the fee is kept.
		require.Equal(t, initialBalance-2, env.balance(t, usdc, alice))
		fees, err := env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Equal(t, uint64(2), fees)

		_, err = env.admin.AbortTransaction(ctx, manager, tx.Id, "stuck")
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)

		_, err = env.svc.ConfirmOutbound(ctx, relayers[0], tx.Id)
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
	})

	t.Run("inbound", func(t *testing.T) {
		res, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0xabort", 5000))
		require.NoError(t, err)

		aborted, err := env.admin.AbortTransaction(ctx, manager, res.TxId, "fraud")
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusFailed, aborted.Status)

		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0xabort", 5000))
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
		require.Zero(t, env.balance(t, usdc, bob))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.admin.AbortTransaction(ctx, manager, 1000, "unknown")
		requireCode(t, errors.TRANSACTION_NOT_FOUND, err)
	})
}

func TestRegistry(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	t.Run("assets", func(t *testing.T) {
		requireCode(t, errors.ALREADY_LISTED, env.admin.ListAsset(ctx, manager, "USD Coin", "USDC", usdc))
		requireCode(t, errors.INVALID_ADDRESS, env.admin.ListAsset(ctx, manager, "Dai", "DAI", ""))
		requireCode(t, errors.UNAUTHORIZED, env.admin.ListAsset(ctx, pauser, "Dai", "DAI", dai))
		requireCode(t, errors.NOT_LISTED, env.admin.DelistAsset(ctx, manager, dai))

		require.NoError(t, env.admin.ListAsset(ctx, manager, "Dai", "DAI", dai))
		listed, err := env.svc.IsListed(ctx, dai)
		require.NoError(t, err)
		require.True(t, listed)

		asset, err := env.svc.GetAsset(ctx, dai)
		require.NoError(t, err)
		require.Equal(t, "DAI", asset.Symbol)

		assets, err := env.svc.ListAssets(ctx)
		require.NoError(t, err)
		require.Len(t, assets, 2)

		require.NoError(t, env.admin.DelistAsset(ctx, manager, dai))
		listed, err = env.svc.IsListed(ctx, dai)
		require.NoError(t, err)
		require.False(t, listed)

		_, err = env.svc.GetAsset(ctx, dai)
		requireCode(t, errors.NOT_LISTED, err)
	})

	t.Run("chains", func(t *testing.T) {
		requireCode(t, errors.INVALID_CHAIN_ID, env.admin.AddChain(ctx, manager, "zero", 0))
		requireCode(t, errors.CHAIN_ALREADY_EXISTS, env.admin.AddChain(ctx, manager, "polygon", polygon))
		requireCode(t, errors.CHAIN_NOT_SUPPORTED, env.admin.RemoveChain(ctx, manager, 10))
		requireCode(t, errors.INVALID_CHAIN_ID, env.admin.RemoveChain(ctx, manager, 0))

		require.NoError(t, env.admin.AddChain(ctx, manager, "optimism", 10))
		chains, err := env.svc.SupportedChains(ctx)
		require.NoError(t, err)
		require.Len(t, chains, 3)

		require.NoError(t, env.admin.RemoveChain(ctx, manager, polygon))
		_, err = env.svc.InitiateOutbound(ctx, alice, OutboundRequest{
			Asset: usdc, Recipient: bob, Amount: 10, DestChainId: polygon,
		})
		requireCode(t, errors.CHAIN_NOT_SUPPORTED, err)
	})

	t.Run("delisted asset", func(t *testing.T) {
		require.NoError(t, env.admin.DelistAsset(ctx, manager, usdc))
		_, err := env.svc.InitiateOutbound(ctx, alice, OutboundRequest{
			Asset: usdc, Recipient: bob, Amount: 10, DestChainId: 10,
		})
		requireCode(t, errors.TOKEN_NOT_LISTED, err)
	})
}
