package ports

import "context"

type Authorizer interface {
	IsRelayer(ctx context.Context, caller string) (bool, error)
	IsManager(ctx context.Context, caller string) (bool, error)
	IsPauser(ctx context.Context, caller string) (bool, error)
}
