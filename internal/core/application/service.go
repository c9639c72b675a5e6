package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const eventsChannelSize = 64

type service struct {
	// services
	repoManager ports.RepoManager
	ledger      ports.Ledger
	authorizer  ports.Authorizer
	clock       ports.Clock
	liveStore   ports.LiveStore
	alerts      ports.Alerts
	registry    registry
	rateLimiter rateLimiter
	fees        feeLedger
	expirer     *expirer

	// config
	version string

	// channels
	eventsCh     chan []domain.Event
	eventsLock   *sync.RWMutex
	eventsClosed bool
}

// NewService returns the relay application service. The given defaults are
// persisted as settings only if none are found in the db. When scheduler is
// not nil, pending transactions are expired automatically.
func NewService(
	repoManager ports.RepoManager,
	ledger ports.Ledger,
	authorizer ports.Authorizer,
	clock ports.Clock,
	liveStore ports.LiveStore,
	alerts ports.Alerts,
	scheduler ports.SchedulerService,
	defaults domain.Settings,
	version string,
) (Service, error) {
	ctx := context.Background()

	settings, err := repoManager.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from db: %w", err)
	}
	if settings == nil {
		if err := defaults.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default settings: %w", err)
		}
		defaults.UpdatedAt = clock.Now()
		if err := repoManager.Settings().Upsert(ctx, defaults); err != nil {
			return nil, fmt.Errorf("failed to store default settings: %w", err)
		}
		log.Info("stored default settings")
	}

	svc := &service{
		repoManager: repoManager,
		ledger:      ledger,
		authorizer:  authorizer,
		clock:       clock,
		liveStore:   liveStore,
		alerts:      alerts,
		registry: registry{
			assets: repoManager.Assets(),
			chains: repoManager.Chains(),
		},
		rateLimiter: rateLimiter{
			store: liveStore.RateWindow(),
			clock: clock,
		},
		fees:       feeLedger{repoManager.Fees()},
		version:    version,
		eventsCh:   make(chan []domain.Event, eventsChannelSize),
		eventsLock: &sync.RWMutex{},
	}

	if scheduler != nil {
		svc.expirer = newExpirer(repoManager, scheduler, svc.ExpireTransaction)
		repoManager.Events().RegisterEventsHandler(
			domain.TransactionTopic, svc.expirer.onTransactionEvents,
		)
	}

	return svc, nil
}

func (s *service) Start() error {
	if s.expirer != nil {
		log.Debug("starting expirer service...")
		if err := s.expirer.start(); err != nil {
			return fmt.Errorf("failed to start expirer: %w", err)
		}
	}
	log.Debug("started app service")
	return nil
}

func (s *service) Stop() {
	s.repoManager.Events().ClearRegisteredHandlers()
	if s.expirer != nil {
		s.expirer.stop()
		log.Debug("stopped expirer service")
	}

	s.repoManager.Close()
	log.Debug("closed connection to db")

	s.eventsLock.Lock()
	defer s.eventsLock.Unlock()
	if !s.eventsClosed {
		s.eventsClosed = true
		close(s.eventsCh)
	}
}

func (s *service) GetEventsChannel(_ context.Context) <-chan []domain.Event {
	return s.eventsCh
}

func (s *service) InitiateOutbound(
	ctx context.Context, sender string, req OutboundRequest,
) (uint64, error) {
	settings, err := s.getSettings(ctx)
	if err != nil {
		return 0, err
	}
	if err := serviceNotPaused(settings); err != nil {
		return 0, err
	}

	if err := requireAddress("sender", sender); err != nil {
		return 0, err
	}
	if err := requireAddress("asset", req.Asset); err != nil {
		return 0, err
	}
	if err := requireAddress("recipient", req.Recipient); err != nil {
		return 0, err
	}
	if err := requireAmount(req.Amount); err != nil {
		return 0, err
	}
	if err := s.registry.requireListed(ctx, req.Asset); err != nil {
		return 0, err
	}
	if err := s.registry.requireSupported(ctx, req.DestChainId); err != nil {
		return 0, err
	}

	balance, err := s.ledger.BalanceOf(ctx, req.Asset, sender)
	if err != nil {
		return 0, internalError("failed to get balance of %s: %w", sender, err)
	}
	if balance < req.Amount {
		return 0, insufficientBalance(sender, balance, req.Amount)
	}

	admittedAt, err := s.rateLimiter.admit(ctx, settings.HourlyTransactionLimit)
	if err != nil {
		return 0, err
	}
	// Every step below that fails undoes the ones before it.
	rollback := []func(){
		func() { s.rateLimiter.release(ctx, admittedAt) },
	}
	abort := func(err error) (uint64, error) {
		for i := len(rollback) - 1; i >= 0; i-- {
			rollback[i]()
		}
		return 0, err
	}

	id, err := s.repoManager.Transactions().NextId(ctx)
	if err != nil {
		return abort(internalError("failed to get next transaction id: %w", err))
	}

	fee, net := quoteFee(req.Amount, settings.FeeBasisPoints)

	if err := s.ledger.Debit(ctx, req.Asset, sender, req.Amount); err != nil {
		if stderrors.Is(err, ports.ErrInsufficientFunds) {
			return abort(insufficientBalance(sender, balance, req.Amount))
		}
		return abort(internalError("failed to debit %s: %w", sender, err))
	}
	rollback = append(rollback, func() {
		if err := s.ledger.Credit(ctx, req.Asset, sender, req.Amount); err != nil {
			log.WithError(err).Errorf(
				"failed to refund %d %s to %s after failed initiation",
				req.Amount, req.Asset, sender,
			)
		}
	})

	if err := s.fees.accrue(ctx, req.Asset, fee); err != nil {
		return abort(errors.INTERNAL_ERROR.Wrap(err))
	}
	rollback = append(rollback, func() {
		if err := s.fees.reverse(ctx, req.Asset, fee); err != nil {
			log.WithError(err).Errorf(
				"failed to reverse fee of %d %s after failed initiation", fee, req.Asset,
			)
		}
	})

	now := s.clock.Now().Unix()
	tx := domain.NewOutboundTransaction(
		id, sender, req.Recipient, req.Asset, net, fee, req.DestChainId,
		now, settings.TransactionTimeout,
	)

	// The threshold applies to the value moved by the sender, fee included.
	if newConfirmationEngine(*settings).finalizesImmediately(req.Amount) {
		if err := tx.Complete(now); err != nil {
			return abort(txStateError(tx, "", now, err))
		}
	}

	if err := s.saveTransaction(ctx, tx); err != nil {
		log.WithError(err).Errorf(
			"failed to store outbound tx %d, refunding %d %s to %s",
			id, req.Amount, req.Asset, sender,
		)
		return abort(errors.INTERNAL_ERROR.Wrap(err))
	}

	log.WithField("tx_id", id).Debugf(
		"initiated outbound tx of %d %s (fee %d) to chain %d, status %s",
		net, req.Asset, fee, req.DestChainId, tx.Status,
	)
	return id, nil
}

func (s *service) ProcessInbound(
	ctx context.Context, relayer string, report InboundReport,
) (*InboundResult, error) {
	if err := requireRole(ctx, s.authorizer.IsRelayer, relayer, roleRelayer); err != nil {
		return nil, err
	}
	settings, err := s.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := serviceNotPaused(settings); err != nil {
		return nil, err
	}

	if err := requireAddress("source_tx_id", report.SourceTxId); err != nil {
		return nil, err
	}
	if err := requireAddress("sender", report.Sender); err != nil {
		return nil, err
	}
	if err := requireAddress("recipient", report.Recipient); err != nil {
		return nil, err
	}
	if err := requireAddress("asset", report.Asset); err != nil {
		return nil, err
	}
	if err := requireAmount(report.Amount); err != nil {
		return nil, err
	}
	if err := s.registry.requireListed(ctx, report.Asset); err != nil {
		return nil, err
	}
	if err := s.registry.requireSupported(ctx, report.SourceChainId); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, inboundLockKey(report.SourceChainId, report.SourceTxId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.repoManager.Transactions().GetBySourceTx(
		ctx, report.SourceChainId, report.SourceTxId,
	)
	if err != nil {
		return nil, internalError("failed to get inbound transaction: %w", err)
	}

	now := s.clock.Now().Unix()
	created := tx == nil
	if created {
		id, err := s.repoManager.Transactions().NextId(ctx)
		if err != nil {
			return nil, internalError("failed to get next transaction id: %w", err)
		}
		tx = domain.NewInboundTransaction(
			id, report.SourceChainId, report.SourceTxId, report.Sender,
			report.Recipient, report.Asset, report.Amount, now, settings.TransactionTimeout,
		)
	} else {
		// Expiry and abort only hold the tx lock, the stored state is reloaded
		// once it's acquired.
		unlockTx, err := s.lock(ctx, txLockKey(tx.Id))
		if err != nil {
			return nil, err
		}
		defer unlockTx()

		if tx, err = s.getTransaction(ctx, tx.Id); err != nil {
			return nil, err
		}
		if !tx.IsPending() {
			return nil, txStateError(tx, relayer, now, domain.ErrTxNotPending)
		}
		if !tx.MatchesReport(report.Sender, report.Recipient, report.Asset, report.Amount) {
			return nil, errors.ATTESTATION_MISMATCH.New(
				"report of relayer %s does not match transaction %d", relayer, tx.Id,
			).WithMetadata(errors.AttestationMismatchMetadata{
				TxId:          tx.Id,
				SourceChainId: report.SourceChainId,
				SourceTxId:    report.SourceTxId,
			})
		}
	}

	count, err := tx.Attest(relayer, now)
	if err != nil {
		return nil, txStateError(tx, relayer, now, err)
	}

	engine := newConfirmationEngine(*settings)
	finalized := engine.finalizesImmediately(tx.Amount) || engine.reachedQuorum(count)
	if finalized {
		if err := tx.Complete(now); err != nil {
			return nil, txStateError(tx, relayer, now, err)
		}
	}

	// The Completed status must be stored before the funds are released.
	if err := s.saveTransaction(ctx, tx); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	if finalized {
		if err := s.ledger.Mint(ctx, tx.Asset, tx.Recipient, tx.Amount); err != nil {
			log.WithError(err).Errorf(
				"inbound tx %d is completed but %d %s were not released to %s",
				tx.Id, tx.Amount, tx.Asset, tx.Recipient,
			)
			go s.publishAlert(ports.ReleaseFailed, ports.ReleaseFailedAlert{
				TxId:      tx.Id,
				Asset:     tx.Asset,
				Recipient: tx.Recipient,
				Amount:    tx.Amount,
			})
			return nil, internalError(
				"failed to release %d %s to %s: %w", tx.Amount, tx.Asset, tx.Recipient, err,
			)
		}
	}

	log.WithField("tx_id", tx.Id).Debugf(
		"relayer %s attested inbound tx %d:%s (%d confirmations, finalized: %t)",
		relayer, report.SourceChainId, report.SourceTxId, count, finalized,
	)

	return &InboundResult{
		TxId:         tx.Id,
		Created:      created,
		Finalized:    finalized,
		ConfirmCount: count,
	}, nil
}

func (s *service) ConfirmOutbound(
	ctx context.Context, relayer string, txId uint64,
) (*domain.Transaction, error) {
	if err := requireRole(ctx, s.authorizer.IsRelayer, relayer, roleRelayer); err != nil {
		return nil, err
	}
	settings, err := s.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := serviceNotPaused(settings); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, txLockKey(txId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.getTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	if !tx.IsOutbound() {
		return nil, errors.INVALID_TRANSACTION_DIRECTION.New(
			"transaction %d is not outbound", txId,
		).WithMetadata(errors.TxDirectionMetadata{TxId: txId, Direction: tx.Direction.String()})
	}

	now := s.clock.Now().Unix()
	count, err := tx.Attest(relayer, now)
	if err != nil {
		return nil, txStateError(tx, relayer, now, err)
	}

	// Funds were escrowed at initiation, completion only changes the status.
	if newConfirmationEngine(*settings).reachedQuorum(count) {
		if err := tx.Complete(now); err != nil {
			return nil, txStateError(tx, relayer, now, err)
		}
	}

	if err := s.saveTransaction(ctx, tx); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithField("tx_id", txId).Debugf(
		"relayer %s confirmed outbound tx (%d confirmations, status %s)",
		relayer, count, tx.Status,
	)
	return tx, nil
}

func (s *service) ExpireTransaction(
	ctx context.Context, txId uint64,
) (*domain.Transaction, error) {
	unlock, err := s.lock(ctx, txLockKey(txId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.getTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Unix()
	if err := tx.Expire(now); err != nil {
		return nil, txStateError(tx, "", now, err)
	}

	if err := s.saveTransaction(ctx, tx); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithField("tx_id", txId).Debugf("expired %s tx", tx.Direction)
	return tx, nil
}

func (s *service) GetTransaction(
	ctx context.Context, txId uint64,
) (*domain.Transaction, error) {
	return s.getTransaction(ctx, txId)
}

func (s *service) ListTransactions(
	ctx context.Context, filter domain.TransactionFilter,
) ([]domain.Transaction, error) {
	txs, err := s.repoManager.Transactions().List(ctx, filter)
	if err != nil {
		return nil, internalError("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *service) IsListed(ctx context.Context, address string) (bool, error) {
	return s.registry.isListed(ctx, address)
}

func (s *service) GetAsset(ctx context.Context, address string) (*domain.Asset, error) {
	asset, err := s.repoManager.Assets().Get(ctx, address)
	if err != nil {
		return nil, internalError("failed to get asset %s: %w", address, err)
	}
	if asset == nil {
		return nil, errors.NOT_LISTED.New("asset %s is not listed", address).
			WithMetadata(errors.AssetMetadata{Asset: address})
	}
	return asset, nil
}

func (s *service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	assets, err := s.repoManager.Assets().GetAll(ctx)
	if err != nil {
		return nil, internalError("failed to list assets: %w", err)
	}
	return assets, nil
}

func (s *service) SupportedChains(ctx context.Context) ([]domain.Chain, error) {
	chains, err := s.repoManager.Chains().GetAll(ctx)
	if err != nil {
		return nil, internalError("failed to list chains: %w", err)
	}
	return chains, nil
}

func (s *service) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return s.getSettings(ctx)
}

func (s *service) GetInfo(ctx context.Context) (*ServiceInfo, error) {
	settings, err := s.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.rateLimiter.count(ctx)
	if err != nil {
		return nil, internalError("failed to count recent transactions: %w", err)
	}

	return &ServiceInfo{
		Version:                s.version,
		TransactionTimeout:     settings.TransactionTimeout,
		FeeBasisPoints:         settings.FeeBasisPoints,
		HourlyTransactionLimit: settings.HourlyTransactionLimit,
		RequiredConfirmations:  settings.RequiredConfirmations,
		ChallengeThreshold:     settings.ChallengeThreshold,
		FeeCollector:           settings.FeeCollector,
		Paused:                 settings.Paused,
		AutoExpire:             s.expirer != nil,
		TxsInLastHour:          count,
	}, nil
}

func (s *service) getSettings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.repoManager.Settings().Get(ctx)
	if err != nil {
		return nil, internalError("failed to get settings: %w", err)
	}
	if settings == nil {
		return nil, internalError("settings not found")
	}
	return settings, nil
}

func (s *service) getTransaction(ctx context.Context, txId uint64) (*domain.Transaction, error) {
	tx, err := s.repoManager.Transactions().Get(ctx, txId)
	if err != nil {
		return nil, internalError("failed to get transaction %d: %w", txId, err)
	}
	if tx == nil {
		return nil, txNotFound(txId)
	}
	return tx, nil
}

func (s *service) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.liveStore.Locks().Lock(ctx, key)
	if err != nil {
		return nil, internalError("failed to acquire lock %s: %w", key, err)
	}
	return unlock, nil
}

// saveTransaction updates the projection of tx and appends the new events to
// the event log. Subscribers are notified only once both succeed.
func (s *service) saveTransaction(ctx context.Context, tx *domain.Transaction) error {
	events := tx.Events()
	if len(events) <= 0 {
		return nil
	}
	if err := s.repoManager.Transactions().AddOrUpdate(ctx, *tx); err != nil {
		return fmt.Errorf("failed to store transaction %d: %w", tx.Id, err)
	}
	if err := s.saveEvents(ctx, domain.TransactionTopic, tx.StringId(), events); err != nil {
		return err
	}
	return nil
}

func (s *service) saveEvents(
	ctx context.Context, topic, id string, events []domain.Event,
) error {
	if len(events) <= 0 {
		return nil
	}
	if err := s.repoManager.Events().Save(ctx, topic, id, events); err != nil {
		return fmt.Errorf("failed to save %s events: %w", topic, err)
	}
	s.propagateEvents(events)
	return nil
}

func (s *service) propagateEvents(events []domain.Event) {
	s.eventsLock.RLock()
	defer s.eventsLock.RUnlock()

	if s.eventsClosed {
		return
	}
	select {
	case s.eventsCh <- events:
	default:
		log.Warnf("events channel is full, dropped %d events", len(events))
	}
}

func insufficientBalance(account string, balance, amount uint64) error {
	return errors.INSUFFICIENT_BALANCE.New(
		"balance of %s is %d, need %d", account, balance, amount,
	).WithMetadata(errors.InsufficientBalanceMetadata{
		Account: account,
		Balance: balance,
		Amount:  amount,
	})
}
