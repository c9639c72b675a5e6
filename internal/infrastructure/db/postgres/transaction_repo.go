package pgdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arkade-os/relayd/internal/core/domain"
)

const (
	nextTxId = `SELECT nextval('relay_tx_id_seq')`

	upsertTx = `
INSERT INTO relay_tx (
	id, direction, sender, recipient, asset, amount, fee, source_chain_id,
	source_tx_id, dest_chain_id, status, created_at, expires_at, ended_at,
	fail_reason, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status,
	ended_at = excluded.ended_at,
	fail_reason = excluded.fail_reason,
	version = excluded.version`

	insertAttestation = `
INSERT INTO attestation (tx_id, relayer, timestamp, position) VALUES ($1, $2, $3, $4)
ON CONFLICT (tx_id, relayer) DO NOTHING`

	selectTxColumns = `
SELECT id, direction, sender, recipient, asset, amount, fee, source_chain_id,
	source_tx_id, dest_chain_id, status, created_at, expires_at, ended_at,
	fail_reason, version
FROM relay_tx`

	selectAttestations = `
SELECT relayer, timestamp FROM attestation WHERE tx_id = $1 ORDER BY position`
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(config ...interface{}) (domain.TransactionRepository, error) {
	db, err := getDb(config, "transaction")
	if err != nil {
		return nil, err
	}
	return &transactionRepository{db}, nil
}

func (r *transactionRepository) NextId(ctx context.Context) (uint64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, nextTxId).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get next transaction id: %w", err)
	}
	return uint64(id), nil
}

func (r *transactionRepository) AddOrUpdate(ctx context.Context, tx domain.Transaction) error {
	return execTx(ctx, r.db, func(qtx *sql.Tx) error {
		if _, err := qtx.ExecContext(
			ctx, upsertTx,
			int64(tx.Id), int(tx.Direction), tx.Sender, tx.Recipient, tx.Asset,
			int64(tx.Amount), int64(tx.Fee), int64(tx.SourceChainId), tx.SourceTxId,
			int64(tx.DestChainId), int(tx.Status), tx.CreatedAt, tx.ExpiresAt,
			tx.EndedAt, tx.FailReason, int64(tx.Version),
		); err != nil {
			return fmt.Errorf("failed to upsert transaction %d: %w", tx.Id, err)
		}

		for i, a := range tx.Attestations {
			if _, err := qtx.ExecContext(
				ctx, insertAttestation, int64(tx.Id), a.Relayer, a.Timestamp, i,
			); err != nil {
				return fmt.Errorf("failed to insert attestation of tx %d: %w", tx.Id, err)
			}
		}
		return nil
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uint64) (*domain.Transaction, error) {
	txs, err := r.query(ctx, selectTxColumns+" WHERE id = $1", int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (r *transactionRepository) GetBySourceTx(
	ctx context.Context, sourceChainId uint64, sourceTxId string,
) (*domain.Transaction, error) {
	txs, err := r.query(
		ctx,
		selectTxColumns+" WHERE direction = $1 AND source_chain_id = $2 AND source_tx_id = $3",
		int(domain.DirectionInbound), int64(sourceChainId), sourceTxId,
	)
	if err != nil {
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
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.Status != domain.TxStatusUndefined {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, int(filter.Status))
	}
	if filter.Direction != domain.DirectionUnspecified {
		conditions = append(conditions, fmt.Sprintf("direction = $%d", len(args)+1))
		args = append(args, int(filter.Direction))
	}

	query := selectTxColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	txs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) Close() {
	_ = r.db.Close()
}

func (r *transactionRepository) query(
	ctx context.Context, query string, args ...any,
) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			// nolint
			rows.Close()
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		// nolint
		rows.Close()
		return nil, err
	}
	// nolint
	rows.Close()

	for i := range txs {
		attestations, err := r.attestations(ctx, txs[i].Id)
		if err != nil {
			return nil, err
		}
		txs[i].Attestations = attestations
	}
	return txs, nil
}

func (r *transactionRepository) attestations(
	ctx context.Context, txId uint64,
) ([]domain.Attestation, error) {
	rows, err := r.db.QueryContext(ctx, selectAttestations, int64(txId))
	if err != nil {
		return nil, err
	}
	// nolint
	defer rows.Close()

	var attestations []domain.Attestation
	for rows.Next() {
		var a domain.Attestation
		if err := rows.Scan(&a.Relayer, &a.Timestamp); err != nil {
			return nil, err
		}
		attestations = append(attestations, a)
	}
	return attestations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTx(row scanner) (*domain.Transaction, error) {
	var (
		tx                                               domain.Transaction
		id, amount, fee, srcChainId, dstChainId, version int64
		direction, status                                int
	)
	if err := row.Scan(
		&id, &direction, &tx.Sender, &tx.Recipient, &tx.Asset, &amount, &fee,
		&srcChainId, &tx.SourceTxId, &dstChainId, &status, &tx.CreatedAt,
		&tx.ExpiresAt, &tx.EndedAt, &tx.FailReason, &version,
	); err != nil {
		return nil, err
	}

	tx.Id = uint64(id)
	tx.Direction = domain.Direction(direction)
	tx.Amount = uint64(amount)
	tx.Fee = uint64(fee)
	tx.SourceChainId = uint64(srcChainId)
	tx.DestChainId = uint64(dstChainId)
	tx.Status = domain.TxStatus(status)
	tx.Version = uint(version)
	return &tx, nil
}
