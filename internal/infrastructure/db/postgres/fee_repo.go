package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/arkade-os/relayd/internal/core/domain"
)

const (
	selectFeeBalance = `SELECT amount FROM fee_balance WHERE asset = $1`
	lockFeeBalance   = `SELECT amount FROM fee_balance WHERE asset = $1 FOR UPDATE`
	initFeeBalance   = `
INSERT INTO fee_balance (asset, amount) VALUES ($1, 0) ON CONFLICT (asset) DO NOTHING`

	upsertFeeBalance = `
INSERT INTO fee_balance (asset, amount) VALUES ($1, $2)
ON CONFLICT (asset) DO UPDATE SET amount = excluded.amount`
)

// Amounts are stored as the int64 with the same bits of the uint64 value,
// so the arithmetic is done in go rather than in sql.
type feeRepository struct {
	db *sql.DB
}

func NewFeeRepository(config ...interface{}) (domain.FeeRepository, error) {
	db, err := getDb(config, "fee")
	if err != nil {
		return nil, err
	}
	return &feeRepository{db}, nil
}

func (r *feeRepository) Accrue(ctx context.Context, asset string, amount uint64) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		balance, err := getFeeBalance(ctx, tx, asset)
		if err != nil {
			return err
		}
		if balance > math.MaxUint64-amount {
			return fmt.Errorf("fee balance overflow for asset %s", asset)
		}
		_, err = tx.ExecContext(ctx, upsertFeeBalance, asset, int64(balance+amount))
		return err
	})
}

func (r *feeRepository) Deduct(ctx context.Context, asset string, amount uint64) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		balance, err := getFeeBalance(ctx, tx, asset)
		if err != nil {
			return err
		}
		if balance < amount {
			return fmt.Errorf(
				"fee balance of %s is %d, cannot deduct %d", asset, balance, amount,
			)
		}
		_, err = tx.ExecContext(ctx, upsertFeeBalance, asset, int64(balance-amount))
		return err
	})
}

func (r *feeRepository) Get(ctx context.Context, asset string) (uint64, error) {
	var amount int64
	err := r.db.QueryRowContext(ctx, selectFeeBalance, asset).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get fee balance of %s: %w", asset, err)
	}
	return uint64(amount), nil
}

func (r *feeRepository) Withdraw(ctx context.Context, asset string) (uint64, error) {
	var withdrawn uint64
	if err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		balance, err := getFeeBalance(ctx, tx, asset)
		if err != nil {
			return err
		}
		withdrawn = balance
		if balance == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, upsertFeeBalance, asset, int64(0))
		return err
	}); err != nil {
		return 0, fmt.Errorf("failed to withdraw fees of %s: %w", asset, err)
	}
	return withdrawn, nil
}

func (r *feeRepository) Close() {
	_ = r.db.Close()
}

// getFeeBalance locks the accumulator row of the asset until the end of tx.
func getFeeBalance(ctx context.Context, tx *sql.Tx, asset string) (uint64, error) {
	if _, err := tx.ExecContext(ctx, initFeeBalance, asset); err != nil {
		return 0, err
	}

	var amount int64
	err := tx.QueryRowContext(ctx, lockFeeBalance, asset).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(amount), nil
}
