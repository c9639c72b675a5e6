package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/shopspring/decimal"
)

var basisPointsDenominator = decimal.NewFromInt(domain.MaxFeeBasisPoints)

// quoteFee returns floor(amount*bps/10000) and the net amount. The product is
// computed on arbitrary precision decimals so it can't overflow.
func quoteFee(amount, feeBasisPoints uint64) (fee, net uint64) {
	if feeBasisPoints == 0 || amount == 0 {
		return 0, amount
	}
	gross := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	bps := decimal.NewFromBigInt(new(big.Int).SetUint64(feeBasisPoints), 0)

	fee = gross.Mul(bps).Div(basisPointsDenominator).Floor().BigInt().Uint64()
	return fee, amount - fee
}

type feeLedger struct {
	repo domain.FeeRepository
}

func (f feeLedger) accrue(ctx context.Context, asset string, fee uint64) error {
	if fee == 0 {
		return nil
	}
	if err := f.repo.Accrue(ctx, asset, fee); err != nil {
		return fmt.Errorf("failed to accrue fee: %w", err)
	}
	return nil
}

// reverse takes back a fee accrued for an initiation that didn't go through.
func (f feeLedger) reverse(ctx context.Context, asset string, fee uint64) error {
	if fee == 0 {
		return nil
	}
	if err := f.repo.Deduct(ctx, asset, fee); err != nil {
		return fmt.Errorf("failed to reverse fee: %w", err)
	}
	return nil
}

func (f feeLedger) balance(ctx context.Context, asset string) (uint64, error) {
	return f.repo.Get(ctx, asset)
}

// withdraw resets the accumulator of asset and passes the withdrawn amount to
// release. The amount is accrued back if release fails.
func (f feeLedger) withdraw(
	ctx context.Context, asset string, release func(amount uint64) error,
) (uint64, error) {
	amount, err := f.repo.Withdraw(ctx, asset)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}

	if err := release(amount); err != nil {
		if rerr := f.repo.Accrue(ctx, asset, amount); rerr != nil {
			return 0, fmt.Errorf(
				"failed to restore %d fees of %s after release error (%s): %w",
				amount, asset, err, rerr,
			)
		}
		return 0, err
	}
	return amount, nil
}
