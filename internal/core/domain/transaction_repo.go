package domain

import "context"

type TransactionFilter struct {
	Status    TxStatus
	Direction Direction
}

type TransactionRepository interface {
	// NextId returns a fresh transaction id. Ids start from 1 and are never reused.
	NextId(ctx context.Context) (uint64, error)
	AddOrUpdate(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id uint64) (*Transaction, error)
	GetBySourceTx(ctx context.Context, sourceChainId uint64, sourceTxId string) (*Transaction, error)
	GetPending(ctx context.Context) ([]Transaction, error)
	// List returns the transactions matching the given filter, zero fields
	// match any value. Results are sorted by id.
	List(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	Close()
}
