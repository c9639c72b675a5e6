package domain

import "context"

type AssetRepository interface {
	Add(ctx context.Context, asset Asset) error
	Get(ctx context.Context, address string) (*Asset, error)
	GetAll(ctx context.Context) ([]Asset, error)
	Delete(ctx context.Context, address string) error
	Close()
}

type ChainRepository interface {
	Add(ctx context.Context, chain Chain) error
	Get(ctx context.Context, id uint64) (*Chain, error)
	GetAll(ctx context.Context) ([]Chain, error)
	Delete(ctx context.Context, id uint64) error
	Close()
}
