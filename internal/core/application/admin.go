package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const settingsLockKey = "settings"

type adminService struct {
	*service
}

// NewAdminService returns the administration service sharing the stores,
// ports and notification channel of the given application service.
func NewAdminService(appSvc Service) (AdminService, error) {
	svc, ok := appSvc.(*service)
	if !ok {
		return nil, fmt.Errorf("unsupported application service %T", appSvc)
	}
	return &adminService{svc}, nil
}

func (a *adminService) ListAsset(
	ctx context.Context, caller, name, symbol, address string,
) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}

	now := a.clock.Now().Unix()
	asset, err := domain.NewAsset(name, symbol, address, now)
	if err != nil {
		return errors.INVALID_ADDRESS.New("invalid asset address %q", address).
			WithMetadata(errors.AddressMetadata{Field: "address", Address: address})
	}

	unlock, err := a.lock(ctx, assetAggregateId(address))
	if err != nil {
		return err
	}
	defer unlock()

	if err := a.registry.listAsset(ctx, *asset); err != nil {
		return err
	}

	log.Infof("listed asset %s (%s)", asset.Symbol, asset.Address)
	a.recordEvent(ctx, domain.RegistryTopic, assetAggregateId(address), domain.AssetListed{
		RegistryEvent: domain.RegistryEvent{
			Id:   assetAggregateId(address),
			Type: domain.EventTypeAssetListed,
		},
		Name:      asset.Name,
		Symbol:    asset.Symbol,
		Address:   asset.Address,
		Timestamp: now,
	})
	return nil
}

func (a *adminService) DelistAsset(ctx context.Context, caller, address string) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}
	if !domain.IsValidAddress(address) {
		return errors.INVALID_ADDRESS.New("invalid asset address %q", address).
			WithMetadata(errors.AddressMetadata{Field: "address", Address: address})
	}

	unlock, err := a.lock(ctx, assetAggregateId(address))
	if err != nil {
		return err
	}
	defer unlock()

	if err := a.registry.delistAsset(ctx, address); err != nil {
		return err
	}

	log.Infof("delisted asset %s", address)
	a.recordEvent(ctx, domain.RegistryTopic, assetAggregateId(address), domain.AssetDelisted{
		RegistryEvent: domain.RegistryEvent{
			Id:   assetAggregateId(address),
			Type: domain.EventTypeAssetDelisted,
		},
		Address:   address,
		Timestamp: a.clock.Now().Unix(),
	})
	return nil
}

func (a *adminService) AddChain(
	ctx context.Context, caller, name string, chainId uint64,
) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}

	now := a.clock.Now().Unix()
	chain, err := domain.NewChain(name, chainId, now)
	if err != nil {
		return invalidChainId(chainId)
	}

	unlock, err := a.lock(ctx, chainAggregateId(chainId))
	if err != nil {
		return err
	}
	defer unlock()

	if err := a.registry.addChain(ctx, *chain); err != nil {
		return err
	}

	log.Infof("added chain %s (%d)", chain.Name, chain.Id)
	a.recordEvent(ctx, domain.RegistryTopic, chainAggregateId(chainId), domain.ChainAdded{
		RegistryEvent: domain.RegistryEvent{
			Id:   chainAggregateId(chainId),
			Type: domain.EventTypeChainAdded,
		},
		Name:      chain.Name,
		ChainId:   chain.Id,
		Timestamp: now,
	})
	return nil
}

func (a *adminService) RemoveChain(ctx context.Context, caller string, chainId uint64) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}
	if chainId == 0 {
		return invalidChainId(chainId)
	}

	unlock, err := a.lock(ctx, chainAggregateId(chainId))
	if err != nil {
		return err
	}
	defer unlock()

	if err := a.registry.removeChain(ctx, chainId); err != nil {
		return err
	}

	log.Infof("removed chain %d", chainId)
	a.recordEvent(ctx, domain.RegistryTopic, chainAggregateId(chainId), domain.ChainRemoved{
		RegistryEvent: domain.RegistryEvent{
			Id:   chainAggregateId(chainId),
			Type: domain.EventTypeChainRemoved,
		},
		ChainId:   chainId,
		Timestamp: a.clock.Now().Unix(),
	})
	return nil
}

func (a *adminService) CollectFees(ctx context.Context, caller, asset string) (uint64, error) {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return 0, err
	}

	listedAsset, err := a.repoManager.Assets().Get(ctx, asset)
	if err != nil {
		return 0, internalError("failed to get asset %s: %w", asset, err)
	}
	if listedAsset == nil {
		return 0, errors.NOT_LISTED.New("asset %s is not listed", asset).
			WithMetadata(errors.AssetMetadata{Asset: asset})
	}

	settings, err := a.getSettings(ctx)
	if err != nil {
		return 0, err
	}
	if err := requireAddress("fee_collector", settings.FeeCollector); err != nil {
		return 0, err
	}
	collector := settings.FeeCollector

	amount, err := a.fees.withdraw(ctx, asset, func(amount uint64) error {
		return a.ledger.Credit(ctx, asset, collector, amount)
	})
	if err != nil {
		return 0, internalError("failed to collect fees of %s: %w", asset, err)
	}
	if amount == 0 {
		return 0, errors.ZERO_AMOUNT.New("no fees accrued for asset %s", asset).
			WithMetadata(errors.AmountMetadata{Amount: 0})
	}

	log.Infof("collected %d fees of %s to %s", amount, asset, collector)

	a.recordEvent(ctx, domain.AdminTopic, feesAggregateId(asset), domain.FeesCollected{
		AdminEvent: domain.AdminEvent{
			Id:   feesAggregateId(asset),
			Type: domain.EventTypeFeesCollected,
		},
		Asset:     asset,
		Amount:    amount,
		Recipient: collector,
		Timestamp: a.clock.Now().Unix(),
	})

	go a.publishAlert(ports.FeesCollected, ports.FeesCollectedAlert{
		Asset:     asset,
		Symbol:    listedAsset.Symbol,
		Amount:    amount,
		Recipient: collector,
		Caller:    caller,
	})
	return amount, nil
}

func (a *adminService) GetFeeBalance(ctx context.Context, asset string) (uint64, error) {
	balance, err := a.fees.balance(ctx, asset)
	if err != nil {
		return 0, internalError("failed to get fee balance of %s: %w", asset, err)
	}
	return balance, nil
}

func (a *adminService) UpdateParameter(
	ctx context.Context, caller, name string, value uint64,
) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}

	unlock, err := a.lock(ctx, settingsLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	settings, err := a.getSettings(ctx)
	if err != nil {
		return err
	}

	oldValue, _ := settings.Parameter(name)
	if err := settings.SetParameter(name, value); err != nil {
		msg := fmt.Sprintf("invalid value %d for parameter %s", value, name)
		if stderrors.Is(err, domain.ErrUnknownParameter) {
			msg = fmt.Sprintf("unknown parameter %s", name)
		}
		return errors.INVALID_PARAMETER.New("%s", msg).
			WithMetadata(errors.ParameterMetadata{Name: name, Value: value})
	}
	settings.UpdatedAt = a.clock.Now()

	if err := a.repoManager.Settings().Upsert(ctx, *settings); err != nil {
		return internalError("failed to update settings: %w", err)
	}

	log.Infof("updated parameter %s from %d to %d", name, oldValue, value)

	a.recordEvent(ctx, domain.AdminTopic, settingsLockKey, domain.SettingsUpdated{
		AdminEvent: domain.AdminEvent{
			Id:   settingsLockKey,
			Type: domain.EventTypeSettingsUpdated,
		},
		Name:      name,
		OldValue:  oldValue,
		NewValue:  value,
		Timestamp: settings.UpdatedAt.Unix(),
	})

	go a.publishAlert(ports.ParameterUpdated, ports.ParameterUpdatedAlert{
		Name:     name,
		OldValue: oldValue,
		NewValue: value,
		Caller:   caller,
	})
	return nil
}

func (a *adminService) UpdateFeeCollector(ctx context.Context, caller, address string) error {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return err
	}
	if err := requireAddress("fee_collector", address); err != nil {
		return err
	}

	unlock, err := a.lock(ctx, settingsLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	settings, err := a.getSettings(ctx)
	if err != nil {
		return err
	}
	settings.FeeCollector = address
	settings.UpdatedAt = a.clock.Now()

	if err := a.repoManager.Settings().Upsert(ctx, *settings); err != nil {
		return internalError("failed to update fee collector: %w", err)
	}

	log.Infof("updated fee collector to %s", address)

	a.recordEvent(ctx, domain.AdminTopic, settingsLockKey, domain.FeeCollectorUpdated{
		AdminEvent: domain.AdminEvent{
			Id:   settingsLockKey,
			Type: domain.EventTypeFeeCollectorUpdated,
		},
		Address:   address,
		Timestamp: settings.UpdatedAt.Unix(),
	})
	return nil
}

// AbortTransaction fails a pending transaction. The net amount of an outbound
// transaction is returned to the sender, the fee is kept.
func (a *adminService) AbortTransaction(
	ctx context.Context, caller string, txId uint64, reason string,
) (*domain.Transaction, error) {
	if err := requireRole(ctx, a.authorizer.IsManager, caller, roleManager); err != nil {
		return nil, err
	}

	unlock, err := a.lock(ctx, txLockKey(txId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := a.getTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now().Unix()
	if err := tx.Fail(reason, now); err != nil {
		return nil, txStateError(tx, "", now, err)
	}

	refunded := false
	if tx.IsOutbound() {
		if err := a.ledger.Credit(ctx, tx.Asset, tx.Sender, tx.Amount); err != nil {
			return nil, internalError(
				"failed to refund %d %s to %s: %w", tx.Amount, tx.Asset, tx.Sender, err,
			)
		}
		refunded = true
	}

	if err := a.saveTransaction(ctx, tx); err != nil {
		log.WithError(err).Errorf("failed to store aborted tx %d", txId)
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithField("tx_id", txId).Infof("aborted %s tx: %s", tx.Direction, reason)

	go a.publishAlert(ports.TransactionAborted, ports.TransactionAbortedAlert{
		TxId:      tx.Id,
		Direction: tx.Direction.String(),
		Asset:     tx.Asset,
		Amount:    tx.Amount,
		Refunded:  refunded,
		Reason:    reason,
		Caller:    caller,
	})
	return tx, nil
}

func (a *adminService) Pause(ctx context.Context, caller string) error {
	return a.setPaused(ctx, caller, true)
}

func (a *adminService) Unpause(ctx context.Context, caller string) error {
	return a.setPaused(ctx, caller, false)
}

func (a *adminService) setPaused(ctx context.Context, caller string, paused bool) error {
	if err := requireRole(ctx, a.authorizer.IsPauser, caller, rolePauser); err != nil {
		return err
	}

	unlock, err := a.lock(ctx, settingsLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	settings, err := a.getSettings(ctx)
	if err != nil {
		return err
	}
	if settings.Paused == paused {
		return nil
	}
	settings.Paused = paused
	settings.UpdatedAt = a.clock.Now()

	if err := a.repoManager.Settings().Upsert(ctx, *settings); err != nil {
		return internalError("failed to update pause flag: %w", err)
	}

	log.Infof("relay paused: %t", paused)

	a.recordEvent(ctx, domain.AdminTopic, settingsLockKey, domain.PauseToggled{
		AdminEvent: domain.AdminEvent{
			Id:   settingsLockKey,
			Type: domain.EventTypePauseToggled,
		},
		Paused:    paused,
		Caller:    caller,
		Timestamp: settings.UpdatedAt.Unix(),
	})

	topic := ports.RelayUnpaused
	if paused {
		topic = ports.RelayPaused
	}
	go a.publishAlert(topic, ports.PauseAlert{Caller: caller})
	return nil
}

// recordEvent appends event to the log. The change it describes is already
// stored, so a failure is only logged.
func (a *adminService) recordEvent(ctx context.Context, topic, id string, event domain.Event) {
	if err := a.saveEvents(ctx, topic, id, []domain.Event{event}); err != nil {
		log.WithError(err).Warnf("failed to save %s event", event.GetType())
	}
}

func invalidChainId(chainId uint64) error {
	return errors.INVALID_CHAIN_ID.New("chain id must be greater than zero").
		WithMetadata(errors.ChainMetadata{ChainId: chainId})
}

func assetAggregateId(address string) string {
	return "asset:" + address
}

func chainAggregateId(chainId uint64) string {
	return "chain:" + strconv.FormatUint(chainId, 10)
}

func feesAggregateId(asset string) string {
	return "fees:" + asset
}
