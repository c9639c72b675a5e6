package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	transactionStoreDir = "transactions"
	txSequenceKey       = "tx_sequence"
)

type transactionRepository struct {
	store    *badgerhold.Store
	sequence *badger.Sequence
}

func NewTransactionRepository(config ...interface{}) (domain.TransactionRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, transactionStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction store: %s", err)
	}

	sequence, err := store.Badger().GetSequence([]byte(txSequenceKey), 100)
	if err != nil {
		// nolint:all
		store.Close()
		return nil, fmt.Errorf("failed to open transaction id sequence: %s", err)
	}

	return &transactionRepository{store, sequence}, nil
}

func (r *transactionRepository) NextId(ctx context.Context) (uint64, error) {
	next, err := r.sequence.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to get next transaction id: %w", err)
	}
	// badger sequences start from 0
	return next + 1, nil
}

func (r *transactionRepository) AddOrUpdate(ctx context.Context, tx domain.Transaction) error {
	return withRetry(func() error {
		return r.store.Upsert(tx.Id, &tx)
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uint64) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.store.Get(id, &tx)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &tx, nil
}

func (r *transactionRepository) GetBySourceTx(
	ctx context.Context, sourceChainId uint64, sourceTxId string,
) (*domain.Transaction, error) {
	query := badgerhold.Where("Direction").Eq(domain.DirectionInbound).
		And("SourceChainId").Eq(sourceChainId).
		And("SourceTxId").Eq(sourceTxId)

	txs := make([]domain.Transaction, 0)
	if err := r.store.Find(&txs, query); err != nil {
		return nil, fmt.Errorf(
			"failed to get transaction by source %d:%s: %w", sourceChainId, sourceTxId, err,
		)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (r *transactionRepository) GetPending(ctx context.Context) ([]domain.Transaction, error) {
	return r.List(ctx, domain.TransactionFilter{Status: domain.TxStatusPending})
}

func (r *transactionRepository) List(
	ctx context.Context, filter domain.TransactionFilter,
) ([]domain.Transaction, error) {
	var query *badgerhold.Query
	if filter.Status != domain.TxStatusUndefined {
		query = badgerhold.Where("Status").Eq(filter.Status)
	}
	if filter.Direction != domain.DirectionUnspecified {
		if query == nil {
			query = badgerhold.Where("Direction").Eq(filter.Direction)
		} else {
			query = query.And("Direction").Eq(filter.Direction)
		}
	}

	txs := make([]domain.Transaction, 0)
	if err := r.store.Find(&txs, query); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Id < txs[j].Id
	})
	return txs, nil
}

func (r *transactionRepository) Close() {
	// nolint:all
	r.sequence.Release()
	// nolint:all
	r.store.Close()
}
