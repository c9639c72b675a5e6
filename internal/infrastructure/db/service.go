package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	badgerdb "github.com/arkade-os/relayd/internal/infrastructure/db/badger"
	pgdb "github.com/arkade-os/relayd/internal/infrastructure/db/postgres"
	sqlitedb "github.com/arkade-os/relayd/internal/infrastructure/db/sqlite"
	watermilldb "github.com/arkade-os/relayd/internal/infrastructure/db/watermill"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.EventRepository, error){
		"badger":   badgerdb.NewEventRepository,
		"postgres": watermilldb.NewEventRepository,
	}
	transactionStoreTypes = map[string]func(...interface{}) (domain.TransactionRepository, error){
		"badger":   badgerdb.NewTransactionRepository,
		"sqlite":   sqlitedb.NewTransactionRepository,
		"postgres": pgdb.NewTransactionRepository,
	}
	assetStoreTypes = map[string]func(...interface{}) (domain.AssetRepository, error){
		"badger":   badgerdb.NewAssetRepository,
		"sqlite":   sqlitedb.NewAssetRepository,
		"postgres": pgdb.NewAssetRepository,
	}
	chainStoreTypes = map[string]func(...interface{}) (domain.ChainRepository, error){
		"badger":   badgerdb.NewChainRepository,
		"sqlite":   sqlitedb.NewChainRepository,
		"postgres": pgdb.NewChainRepository,
	}
	settingsStoreTypes = map[string]func(...interface{}) (domain.SettingsRepository, error){
		"badger":   badgerdb.NewSettingsRepository,
		"sqlite":   sqlitedb.NewSettingsRepository,
		"postgres": pgdb.NewSettingsRepository,
	}
	feeStoreTypes = map[string]func(...interface{}) (domain.FeeRepository, error){
		"badger":   badgerdb.NewFeeRepository,
		"sqlite":   sqlitedb.NewFeeRepository,
		"postgres": pgdb.NewFeeRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore       domain.EventRepository
	transactionStore domain.TransactionRepository
	assetStore       domain.AssetRepository
	chainStore       domain.ChainRepository
	settingsStore    domain.SettingsRepository
	feeStore         domain.FeeRepository
	sqlDb            *sql.DB
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("event store type not supported")
	}
	transactionStoreFactory, ok := transactionStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	assetStoreFactory := assetStoreTypes[config.DataStoreType]
	chainStoreFactory := chainStoreTypes[config.DataStoreType]
	settingsStoreFactory := settingsStoreTypes[config.DataStoreType]
	feeStoreFactory := feeStoreTypes[config.DataStoreType]

	var eventStore domain.EventRepository
	var err error

	switch config.EventStoreType {
	case "badger":
		eventStore, err = eventStoreFactory(config.EventStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
	case "postgres":
		db, err := openPostgres(config.EventStoreConfig)
		if err != nil {
			return nil, err
		}

		eventStore, err = eventStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
	default:
		return nil, fmt.Errorf("unknown event store db type")
	}

	var (
		storeConfig []interface{}
		sqlDb       *sql.DB
	)
	switch config.DataStoreType {
	case "badger":
		storeConfig = config.DataStoreConfig

	case "postgres":
		db, err := openPostgres(config.DataStoreConfig)
		if err != nil {
			eventStore.Close()
			return nil, err
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			eventStore.Close()
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		storeConfig = []interface{}{db}
		sqlDb = db

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			eventStore.Close()
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			eventStore.Close()
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "relaydb", driver)
		if err != nil {
			eventStore.Close()
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			eventStore.Close()
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		storeConfig = []interface{}{db}
		sqlDb = db
	}

	svc := &service{eventStore: eventStore, sqlDb: sqlDb}

	if svc.transactionStore, err = transactionStoreFactory(storeConfig...); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to open transaction store: %s", err)
	}
	if svc.assetStore, err = assetStoreFactory(storeConfig...); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to open asset store: %s", err)
	}
	if svc.chainStore, err = chainStoreFactory(storeConfig...); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to open chain store: %s", err)
	}
	if svc.settingsStore, err = settingsStoreFactory(storeConfig...); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to open settings store: %s", err)
	}
	if svc.feeStore, err = feeStoreFactory(storeConfig...); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to open fee store: %s", err)
	}

	return svc, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Transactions() domain.TransactionRepository {
	return s.transactionStore
}

func (s *service) Assets() domain.AssetRepository {
	return s.assetStore
}

func (s *service) Chains() domain.ChainRepository {
	return s.chainStore
}

func (s *service) Settings() domain.SettingsRepository {
	return s.settingsStore
}

func (s *service) Fees() domain.FeeRepository {
	return s.feeStore
}

// Close releases all the stores. Sql backed stores share the same db handle,
// which is closed only once here rather than by each of them.
func (s *service) Close() {
	if s.eventStore != nil {
		s.eventStore.Close()
	}
	if s.sqlDb != nil {
		_ = s.sqlDb.Close()
		return
	}
	if s.transactionStore != nil {
		s.transactionStore.Close()
	}
	if s.assetStore != nil {
		s.assetStore.Close()
	}
	if s.chainStore != nil {
		s.chainStore.Close()
	}
	if s.settingsStore != nil {
		s.settingsStore.Close()
	}
	if s.feeStore != nil {
		s.feeStore.Close()
	}
}

func openPostgres(config []interface{}) (*sql.DB, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid data store config for postgres")
	}

	dsn, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid DSN for postgres")
	}

	autoCreate, ok := config[1].(bool)
	if !ok {
		return nil, fmt.Errorf("invalid autocreate flag for postgres")
	}

	db, err := pgdb.OpenDb(dsn, autoCreate)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %s", err)
	}
	return db, nil
}
