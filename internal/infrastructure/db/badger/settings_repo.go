package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	settingsStoreDir = "settings"
	settingsKey      = "settings"
)

type settingsRepository struct {
	store *badgerhold.Store
}

func NewSettingsRepository(config ...interface{}) (domain.SettingsRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, settingsStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %s", err)
	}

	return &settingsRepository{store}, nil
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	err := r.store.Get(settingsKey, &settings)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings domain.Settings) error {
	return withRetry(func() error {
		return r.store.Upsert(settingsKey, &settings)
	})
}

func (r *settingsRepository) Clear(ctx context.Context) error {
	var settings domain.Settings
	if err := r.store.Delete(settingsKey, &settings); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *settingsRepository) Close() {
	// nolint:all
	r.store.Close()
}
