package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkade-os/relayd/internal/core/domain"
)

const (
	insertAsset = `
INSERT INTO asset (address, name, symbol, listed_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (address) DO UPDATE SET
	name = excluded.name, symbol = excluded.symbol, listed_at = excluded.listed_at`
	selectAsset     = `SELECT address, name, symbol, listed_at FROM asset WHERE address = $1`
	selectAllAssets = `SELECT address, name, symbol, listed_at FROM asset ORDER BY listed_at, address`
	deleteAsset     = `DELETE FROM asset WHERE address = $1`

	insertChain = `
INSERT INTO chain (id, name, added_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, added_at = excluded.added_at`
	selectChain     = `SELECT id, name, added_at FROM chain WHERE id = $1`
	selectAllChains = `SELECT id, name, added_at FROM chain ORDER BY id`
	deleteChain     = `DELETE FROM chain WHERE id = $1`
)

type assetRepository struct {
	db *sql.DB
}

func NewAssetRepository(config ...interface{}) (domain.AssetRepository, error) {
	db, err := getDb(config, "asset")
	if err != nil {
		return nil, err
	}
	return &assetRepository{db}, nil
}

func (r *assetRepository) Add(ctx context.Context, asset domain.Asset) error {
	_, err := r.db.ExecContext(
		ctx, insertAsset, asset.Address, asset.Name, asset.Symbol, asset.ListedAt,
	)
	return err
}

func (r *assetRepository) Get(ctx context.Context, address string) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.db.QueryRowContext(ctx, selectAsset, address).Scan(
		&asset.Address, &asset.Name, &asset.Symbol, &asset.ListedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", address, err)
	}
	return &asset, nil
}

func (r *assetRepository) GetAll(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, selectAllAssets)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	// nolint
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.Address, &asset.Name, &asset.Symbol, &asset.ListedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (r *assetRepository) Delete(ctx context.Context, address string) error {
	_, err := r.db.ExecContext(ctx, deleteAsset, address)
	return err
}

func (r *assetRepository) Close() {
	_ = r.db.Close()
}

type chainRepository struct {
	db *sql.DB
}

func NewChainRepository(config ...interface{}) (domain.ChainRepository, error) {
	db, err := getDb(config, "chain")
	if err != nil {
		return nil, err
	}
	return &chainRepository{db}, nil
}

func (r *chainRepository) Add(ctx context.Context, chain domain.Chain) error {
	_, err := r.db.ExecContext(ctx, insertChain, int64(chain.Id), chain.Name, chain.AddedAt)
	return err
}

func (r *chainRepository) Get(ctx context.Context, id uint64) (*domain.Chain, error) {
	var (
		chain   domain.Chain
		chainId int64
	)
	err := r.db.QueryRowContext(ctx, selectChain, int64(id)).Scan(
		&chainId, &chain.Name, &chain.AddedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain %d: %w", id, err)
	}
	chain.Id = uint64(chainId)
	return &chain, nil
}

func (r *chainRepository) GetAll(ctx context.Context) ([]domain.Chain, error) {
	rows, err := r.db.QueryContext(ctx, selectAllChains)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	// nolint
	defer rows.Close()

	chains := make([]domain.Chain, 0)
	for rows.Next() {
		var (
			chain   domain.Chain
			chainId int64
		)
		if err := rows.Scan(&chainId, &chain.Name, &chain.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		chain.Id = uint64(chainId)
		chains = append(chains, chain)
	}
	return chains, rows.Err()
}

func (r *chainRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, deleteChain, int64(id))
	return err
}

func (r *chainRepository) Close() {
	_ = r.db.Close()
}
