package ports

import "github.com/arkade-os/relayd/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Transactions() domain.TransactionRepository
	Assets() domain.AssetRepository
	Chains() domain.ChainRepository
	Settings() domain.SettingsRepository
	Fees() domain.FeeRepository
	Close()
}
