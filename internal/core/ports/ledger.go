package ports

import (
	"context"
	"errors"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the token balance ledger of the local chain.
type Ledger interface {
	// Debit moves amount of asset from account into the relay escrow.
	Debit(ctx context.Context, asset, account string, amount uint64) error
	// Credit moves amount of asset from the relay escrow to account.
	Credit(ctx context.Context, asset, account string, amount uint64) error
	// Mint releases newly issued amount of asset to account.
	Mint(ctx context.Context, asset, account string, amount uint64) error
	BalanceOf(ctx context.Context, asset, account string) (uint64, error)
}
