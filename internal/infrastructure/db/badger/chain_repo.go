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

const chainStoreDir = "chains"

type chainRepository struct {
	store *badgerhold.Store
}

func NewChainRepository(config ...interface{}) (domain.ChainRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, chainStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain store: %s", err)
	}

	return &chainRepository{store}, nil
}

func (r *chainRepository) Add(ctx context.Context, chain domain.Chain) error {
	return withRetry(func() error {
		return r.store.Upsert(chain.Id, &chain)
	})
}

func (r *chainRepository) Get(ctx context.Context, id uint64) (*domain.Chain, error) {
	var chain domain.Chain
	err := r.store.Get(id, &chain)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain %d: %w", id, err)
	}
	return &chain, nil
}

func (r *chainRepository) GetAll(ctx context.Context) ([]domain.Chain, error) {
	chains := make([]domain.Chain, 0)
	if err := r.store.Find(&chains, nil); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	sort.SliceStable(chains, func(i, j int) bool {
		return chains[i].Id < chains[j].Id
	})
	return chains, nil
}

func (r *chainRepository) Delete(ctx context.Context, id uint64) error {
	return withRetry(func() error {
		err := r.store.Delete(id, &domain.Chain{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (r *chainRepository) Close() {
	// nolint:all
	r.store.Close()
}
