package application

import (
	"context"
	"sync"
	"time"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// expirer is an unexported service running while the main application service
// is started. It schedules a one-shot task for every pending transaction that
// expires it right after its deadline, the same way any caller could do.
type expirer struct {
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	expire      func(ctx context.Context, txId uint64) (*domain.Transaction, error)

	// cache of scheduled tasks, avoid scheduling the same expiry multiple times
	locker         *sync.Mutex
	scheduledTasks map[uint64]struct{}
}

func newExpirer(
	repoManager ports.RepoManager, scheduler ports.SchedulerService,
	expire func(ctx context.Context, txId uint64) (*domain.Transaction, error),
) *expirer {
	return &expirer{
		repoManager, scheduler, expire, &sync.Mutex{}, make(map[uint64]struct{}),
	}
}

func (e *expirer) start() error {
	e.scheduler.Start()

	ctx := context.Background()
	pendingTxs, err := e.repoManager.Transactions().GetPending(ctx)
	if err != nil {
		return err
	}

	if len(pendingTxs) > 0 {
		log.Infof("expirer: restoring %d pending transactions", len(pendingTxs))
	}
	for _, tx := range pendingTxs {
		e.schedule(tx)
	}
	return nil
}

func (e *expirer) stop() {
	e.scheduler.Stop()
}

// onTransactionEvents is registered as handler of the transaction topic.
func (e *expirer) onTransactionEvents(events []domain.Event) {
	tx := domain.NewTransactionFromEvents(events)
	if !tx.IsPending() {
		return
	}
	e.schedule(*tx)
}

func (e *expirer) schedule(tx domain.Transaction) {
	e.scheduleAt(tx.Id, tx.ExpiresAt+1)
}

func (e *expirer) scheduleAt(txId uint64, at int64) {
	e.locker.Lock()
	defer e.locker.Unlock()

	if _, scheduled := e.scheduledTasks[txId]; scheduled {
		return
	}

	if err := e.scheduler.ScheduleTaskOnce(at, e.expireTask(txId)); err != nil {
		log.WithError(err).Warnf("expirer: failed to schedule expiry of tx %d", txId)
		return
	}
	e.scheduledTasks[txId] = struct{}{}

	log.Debugf(
		"expirer: scheduled expiry of tx %d at %s",
		txId, time.Unix(at, 0).Format(time.RFC3339),
	)
}

func (e *expirer) expireTask(txId uint64) func() {
	return func() {
		e.locker.Lock()
		delete(e.scheduledTasks, txId)
		e.locker.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err := e.expire(ctx, txId)
		switch {
		case err == nil:
			log.Infof("expirer: expired tx %d", txId)
		case errors.NOT_EXPIRED_YET.Is(err):
			e.scheduleAt(txId, e.scheduler.AddNow(1))
		case errors.INVALID_TRANSACTION_STATUS.Is(err):
			log.Debugf("expirer: tx %d already finalized", txId)
		default:
			log.WithError(err).Warnf("expirer: failed to expire tx %d", txId)
		}
	}
}
