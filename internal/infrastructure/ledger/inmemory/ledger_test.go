package inmemoryledger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arkade-os/relayd/internal/core/ports"
	inmemoryledger "github.com/arkade-os/relayd/internal/infrastructure/ledger/inmemory"
	"github.com/stretchr/testify/require"
)

const asset = "0xusdc"

func TestLedger(t *testing.T) {
	ctx := t.Context()
	ledger := inmemoryledger.NewLedger(inmemoryledger.Balances{
		asset: {"alice": 1000},
	})

	require.NoError(t, ledger.Debit(ctx, asset, "alice", 400))
	balance, err := ledger.BalanceOf(ctx, asset, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(600), balance)

	escrow, err := ledger.BalanceOf(ctx, asset, inmemoryledger.EscrowAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(400), escrow)

	err = ledger.Debit(ctx, asset, "alice", 601)
	require.ErrorIs(t, err, ports.ErrInsufficientFunds)

	require.NoError(t, ledger.Credit(ctx, asset, "collector", 4))
	balance, err = ledger.BalanceOf(ctx, asset, "collector")
	require.NoError(t, err)
	require.Equal(t, uint64(4), balance)

	err = ledger.Credit(ctx, asset, "bob", 1000)
	require.ErrorIs(t, err, ports.ErrInsufficientFunds)

	require.NoError(t, ledger.Mint(ctx, asset, "dave", 500))
	balance, err = ledger.BalanceOf(ctx, asset, "dave")
	require.NoError(t, err)
	require.Equal(t, uint64(500), balance)

	balance, err = ledger.BalanceOf(ctx, "0xunknown", "dave")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestNewLedgerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balances.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0xusdc":{"alice":1000000}}`), 0600))

	ledger, err := inmemoryledger.NewLedgerFromFile(path)
	require.NoError(t, err)

	balance, err := ledger.BalanceOf(t.Context(), asset, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1000000), balance)

	_, err = inmemoryledger.NewLedgerFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	ledger, err = inmemoryledger.NewLedgerFromFile("")
	require.NoError(t, err)
	require.NotNil(t, ledger)
}
