package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const assetStoreDir = "assets"

type assetRepository struct {
	store *badgerhold.Store
}

func NewAssetRepository(config ...interface{}) (domain.AssetRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, assetStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset store: %s", err)
	}

	return &assetRepository{store}, nil
}

func (r *assetRepository) Add(ctx context.Context, asset domain.Asset) error {
	return withRetry(func() error {
		return r.store.Upsert(asset.Address, &asset)
	})
}

func (r *assetRepository) Get(ctx context.Context, address string) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.store.Get(address, &asset)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", address, err)
	}
	return &asset, nil
}

func (r *assetRepository) GetAll(ctx context.Context) ([]domain.Asset, error) {
	assets := make([]domain.Asset, 0)
	if err := r.store.Find(&assets, nil); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].ListedAt < assets[j].ListedAt
	})
	return assets, nil
}

func (r *assetRepository) Delete(ctx context.Context, address string) error {
	return withRetry(func() error {
		err := r.store.Delete(address, &domain.Asset{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (r *assetRepository) Close() {
	// nolint:all
	r.store.Close()
}
