package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const feeStoreDir = "fees"

type feeBalance struct {
	Asset  string
	Amount uint64
}

// lock serializes the read-modify-write cycles of Accrue, Deduct and Withdraw.
type feeRepository struct {
	store *badgerhold.Store
	lock  *sync.Mutex
}

func NewFeeRepository(config ...interface{}) (domain.FeeRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, feeStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open fee store: %s", err)
	}

	return &feeRepository{store, &sync.Mutex{}}, nil
}

func (r *feeRepository) Accrue(ctx context.Context, asset string, amount uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return withRetry(func() error {
		tx := r.store.Badger().NewTransaction(true)
		defer tx.Discard()

		balance := feeBalance{Asset: asset}
		if err := r.store.TxGet(tx, asset, &balance); err != nil &&
			!errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		if balance.Amount > math.MaxUint64-amount {
			return fmt.Errorf("fee balance overflow for asset %s", asset)
		}
		balance.Amount += amount

		if err := r.store.TxUpsert(tx, asset, &balance); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (r *feeRepository) Deduct(ctx context.Context, asset string, amount uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return withRetry(func() error {
		tx := r.store.Badger().NewTransaction(true)
		defer tx.Discard()

		balance := feeBalance{Asset: asset}
		if err := r.store.TxGet(tx, asset, &balance); err != nil &&
			!errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		if balance.Amount < amount {
			return fmt.Errorf(
				"fee balance of %s is %d, cannot deduct %d", asset, balance.Amount, amount,
			)
		}
		balance.Amount -= amount

		if err := r.store.TxUpsert(tx, asset, &balance); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (r *feeRepository) Get(ctx context.Context, asset string) (uint64, error) {
	var balance feeBalance
	err := r.store.Get(asset, &balance)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get fee balance of %s: %w", asset, err)
	}
	return balance.Amount, nil
}

func (r *feeRepository) Withdraw(ctx context.Context, asset string) (uint64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var withdrawn uint64
	err := withRetry(func() error {
		tx := r.store.Badger().NewTransaction(true)
		defer tx.Discard()

		var balance feeBalance
		if err := r.store.TxGet(tx, asset, &balance); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				withdrawn = 0
				return nil
			}
			return err
		}
		withdrawn = balance.Amount
		balance.Amount = 0

		if err := r.store.TxUpsert(tx, asset, &balance); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw fees of %s: %w", asset, err)
	}
	return withdrawn, nil
}

func (r *feeRepository) Close() {
	// nolint:all
	r.store.Close()
}
