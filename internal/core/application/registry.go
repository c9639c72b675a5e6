package application

import (
	"context"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/pkg/errors"
)

type registry struct {
	assets domain.AssetRepository
	chains domain.ChainRepository
}

func (r registry) isListed(ctx context.Context, address string) (bool, error) {
	asset, err := r.assets.Get(ctx, address)
	if err != nil {
		return false, internalError("failed to get asset %s: %w", address, err)
	}
	return asset != nil, nil
}

func (r registry) isSupported(ctx context.Context, chainId uint64) (bool, error) {
	if chainId == 0 {
		return false, nil
	}
	chain, err := r.chains.Get(ctx, chainId)
	if err != nil {
		return false, internalError("failed to get chain %d: %w", chainId, err)
	}
	return chain != nil, nil
}

func (r registry) requireListed(ctx context.Context, address string) error {
	listed, err := r.isListed(ctx, address)
	if err != nil {
		return err
	}
	if !listed {
		return errors.TOKEN_NOT_LISTED.New("asset %s is not listed", address).
			WithMetadata(errors.AssetMetadata{Asset: address})
	}
	return nil
}

func (r registry) requireSupported(ctx context.Context, chainId uint64) error {
	supported, err := r.isSupported(ctx, chainId)
	if err != nil {
		return err
	}
	if !supported {
		return errors.CHAIN_NOT_SUPPORTED.New("chain %d is not supported", chainId).
			WithMetadata(errors.ChainMetadata{ChainId: chainId})
	}
	return nil
}

func (r registry) listAsset(ctx context.Context, asset domain.Asset) error {
	listed, err := r.isListed(ctx, asset.Address)
	if err != nil {
		return err
	}
	if listed {
		return errors.ALREADY_LISTED.New("asset %s is already listed", asset.Address).
			WithMetadata(errors.AssetMetadata{Asset: asset.Address})
	}
	if err := r.assets.Add(ctx, asset); err != nil {
		return internalError("failed to add asset %s: %w", asset.Address, err)
	}
	return nil
}

func (r registry) delistAsset(ctx context.Context, address string) error {
	listed, err := r.isListed(ctx, address)
	if err != nil {
		return err
	}
	if !listed {
		return errors.NOT_LISTED.New("asset %s is not listed", address).
			WithMetadata(errors.AssetMetadata{Asset: address})
	}
	if err := r.assets.Delete(ctx, address); err != nil {
		return internalError("failed to delete asset %s: %w", address, err)
	}
	return nil
}

func (r registry) addChain(ctx context.Context, chain domain.Chain) error {
	supported, err := r.isSupported(ctx, chain.Id)
	if err != nil {
		return err
	}
	if supported {
		return errors.CHAIN_ALREADY_EXISTS.New("chain %d already exists", chain.Id).
			WithMetadata(errors.ChainMetadata{ChainId: chain.Id})
	}
	if err := r.chains.Add(ctx, chain); err != nil {
		return internalError("failed to add chain %d: %w", chain.Id, err)
	}
	return nil
}

func (r registry) removeChain(ctx context.Context, chainId uint64) error {
	if err := r.requireSupported(ctx, chainId); err != nil {
		return err
	}
	if err := r.chains.Delete(ctx, chainId); err != nil {
		return internalError("failed to delete chain %d: %w", chainId, err)
	}
	return nil
}
