package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arkade-os/relayd/internal/core/domain"
)

const (
	selectSettings = `
SELECT transaction_timeout, fee_basis_points, hourly_transaction_limit,
	required_confirmations, challenge_threshold, fee_collector, paused, updated_at
FROM settings WHERE id = 1`

	upsertSettings = `
INSERT INTO settings (
	id, transaction_timeout, fee_basis_points, hourly_transaction_limit,
	required_confirmations, challenge_threshold, fee_collector, paused, updated_at
) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	transaction_timeout = excluded.transaction_timeout,
	fee_basis_points = excluded.fee_basis_points,
	hourly_transaction_limit = excluded.hourly_transaction_limit,
	required_confirmations = excluded.required_confirmations,
	challenge_threshold = excluded.challenge_threshold,
	fee_collector = excluded.fee_collector,
	paused = excluded.paused,
	updated_at = excluded.updated_at`

	clearSettings = `DELETE FROM settings`
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(config ...interface{}) (domain.SettingsRepository, error) {
	db, err := getDb(config, "settings")
	if err != nil {
		return nil, err
	}
	return &settingsRepository{db}, nil
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var (
		settings                                      domain.Settings
		feeBps, limit, confirmations, threshold, upAt int64
	)
	err := r.db.QueryRowContext(ctx, selectSettings).Scan(
		&settings.TransactionTimeout, &feeBps, &limit, &confirmations, &threshold,
		&settings.FeeCollector, &settings.Paused, &upAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings.FeeBasisPoints = uint64(feeBps)
	settings.HourlyTransactionLimit = uint64(limit)
	settings.RequiredConfirmations = uint64(confirmations)
	settings.ChallengeThreshold = uint64(threshold)
	settings.UpdatedAt = time.Unix(upAt, 0)
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings domain.Settings) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx, upsertSettings,
			settings.TransactionTimeout,
			int64(settings.FeeBasisPoints),
			int64(settings.HourlyTransactionLimit),
			int64(settings.RequiredConfirmations),
			int64(settings.ChallengeThreshold),
			settings.FeeCollector,
			settings.Paused,
			settings.UpdatedAt.Unix(),
		)
		return err
	})
}

func (r *settingsRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, clearSettings)
	return err
}

func (r *settingsRepository) Close() {
	_ = r.db.Close()
}
