package domain

import "context"

// FeeRepository holds the per-asset fee accumulators.
// Accrue, Deduct and Withdraw must be atomic with respect to each other.
type FeeRepository interface {
	Accrue(ctx context.Context, asset string, amount uint64) error
	Get(ctx context.Context, asset string) (uint64, error)
	// Deduct takes back a previously accrued amount. It fails without
	// changes if the accumulator holds less than amount.
	Deduct(ctx context.Context, asset string, amount uint64) error
	// Withdraw resets the accumulator of the given asset and returns the
	// amount it held before.
	Withdraw(ctx context.Context, asset string) (uint64, error)
	Close()
}
