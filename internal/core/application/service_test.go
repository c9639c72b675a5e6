package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/internal/infrastructure/authorizer/roster"
	"github.com/arkade-os/relayd/internal/infrastructure/db"
	inmemoryledger "github.com/arkade-os/relayd/internal/infrastructure/ledger/inmemory"
	inmemorylivestore "github.com/arkade-os/relayd/internal/infrastructure/live-store/inmemory"
	tickerscheduler "github.com/arkade-os/relayd/internal/infrastructure/scheduler/ticker"
	"github.com/arkade-os/relayd/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	usdc      = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	dai       = "0x6b175474e89094c44da98b954eedeac495271d0f"
	alice     = "alice"
	bob       = "bob"
	carol     = "carol"
	manager   = "manager"
	pauser    = "pauser"
	collector = "collector"
	ethereum  = uint64(1)
	polygon   = uint64(137)

	initialBalance = uint64(1_000_000)
	day            = 24 * time.Hour
)

var relayers = []string{"r1", "r2", "r3", "r4"}

type testClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type alertsRecorder struct {
	topics chan ports.Topic
}

func (a *alertsRecorder) Publish(_ context.Context, topic ports.Topic, _ interface{}) error {
	a.topics <- topic
	return nil
}

type testEnv struct {
	svc    Service
	admin  AdminService
	ledger ports.Ledger
	clock  *testClock
	alerts *alertsRecorder
}

// flakyTxRepository fails AddOrUpdate while failures is not zero. A negative
// value fails every call.
type flakyTxRepository struct {
	domain.TransactionRepository
	lock     sync.Mutex
	failures int
}

func (r *flakyTxRepository) AddOrUpdate(ctx context.Context, tx domain.Transaction) error {
	r.lock.Lock()
	if r.failures != 0 {
		if r.failures > 0 {
			r.failures--
		}
		r.lock.Unlock()
		return fmt.Errorf("write of transaction %d failed", tx.Id)
	}
	r.lock.Unlock()
	return r.TransactionRepository.AddOrUpdate(ctx, tx)
}

func (r *flakyTxRepository) fail(n int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failures = n
}

type flakyRepoManager struct {
	ports.RepoManager
	txs *flakyTxRepository
}

func (m *flakyRepoManager) Transactions() domain.TransactionRepository {
	return m.txs
}

func newTestEnv(t *testing.T, ledger ports.Ledger, autoExpire bool) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, ledger, autoExpire, nil)
}

func newFlakyTestEnv(t *testing.T, ledger ports.Ledger) (*testEnv, *flakyTxRepository) {
	t.Helper()

	var txs *flakyTxRepository
	env := newTestEnvWithRepo(t, ledger, false, func(repo ports.RepoManager) ports.RepoManager {
		txs = &flakyTxRepository{TransactionRepository: repo.Transactions()}
		return &flakyRepoManager{repo, txs}
	})
	return env, txs
}

// newTestEnvWithRepo lets wrap replace the repo manager passed to the service.
func newTestEnvWithRepo(
	t *testing.T, ledger ports.Ledger, autoExpire bool,
	wrap func(ports.RepoManager) ports.RepoManager,
) *testEnv {
	t.Helper()

	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)
	if wrap != nil {
		repoManager = wrap(repoManager)
	}

	if ledger == nil {
		ledger = inmemoryledger.NewLedger(inmemoryledger.Balances{
			usdc: {alice: initialBalance, carol: initialBalance},
			dai:  {alice: initialBalance},
		})
	}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	alerts := &alertsRecorder{topics: make(chan ports.Topic, 32)}

	var scheduler ports.SchedulerService
	if autoExpire {
		scheduler, err = tickerscheduler.NewScheduler(
			clock, tickerscheduler.WithTickerInterval(10*time.Millisecond),
		)
		require.NoError(t, err)
	}

	svc, err := NewService(
		repoManager,
		ledger,
		roster.NewAuthorizer(relayers, []string{manager}, []string{pauser}),
		clock,
		inmemorylivestore.NewLiveStore(),
		alerts,
		scheduler,
		domain.Settings{
			TransactionTimeout:     int64((7 * day).Seconds()),
			FeeBasisPoints:         domain.DefaultFeeBasisPoints,
			HourlyTransactionLimit: domain.DefaultHourlyTransactionLimit,
			RequiredConfirmations:  domain.DefaultRequiredConfirmations,
			ChallengeThreshold:     domain.DefaultChallengeThreshold,
			FeeCollector:           collector,
		},
		"test",
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	admin, err := NewAdminService(svc)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, admin.ListAsset(ctx, manager, "USD Coin", "USDC", usdc))
	require.NoError(t, admin.AddChain(ctx, manager, "ethereum", ethereum))
	require.NoError(t, admin.AddChain(ctx, manager, "polygon", polygon))

	return &testEnv{svc, admin, ledger, clock, alerts}
}

func (e *testEnv) balance(t *testing.T, asset, account string) uint64 {
	t.Helper()
	balance, err := e.ledger.BalanceOf(context.Background(), asset, account)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) initiate(t *testing.T, amount uint64) *domain.Transaction {
	t.Helper()
	ctx := context.Background()
	id, err := e.svc.InitiateOutbound(ctx, alice, OutboundRequest{
		Asset:       usdc,
		Recipient:   bob,
		Amount:      amount,
		DestChainId: polygon,
	})
	require.NoError(t, err)
	tx, err := e.svc.GetTransaction(ctx, id)
	require.NoError(t, err)
	return tx
}

func inboundReport(sourceTxId string, amount uint64) InboundReport {
	return InboundReport{
		SourceChainId: ethereum,
		SourceTxId:    sourceTxId,
		Sender:        carol,
		Recipient:     bob,
		Asset:         usdc,
		Amount:        amount,
	}
}

func requireCode[MT any](t *testing.T, code errors.Code[MT], err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, code.Is(err), "expected %s, got %v", code, err)
}

func TestInitiateOutbound(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		t.Run("below threshold", func(t *testing.T) {
			tx := env.initiate(t, 999)

			require.Equal(t, domain.DirectionOutbound, tx.Direction)
			require.Equal(t, domain.TxStatusCompleted, tx.Status)
			require.Zero(t, tx.Fee)
			require.Equal(t, uint64(999), tx.Amount)
			require.Equal(t, polygon, tx.DestChainId)
			require.Equal(t, initialBalance-999, env.balance(t, usdc, alice))
		})

		t.Run("above threshold", func(t *testing.T) {
			before := env.balance(t, usdc, alice)
			tx := env.initiate(t, 2000)

			require.Equal(t, domain.TxStatusPending, tx.Status)
			require.Equal(t, uint64(2), tx.Fee)
			require.Equal(t, uint64(1998), tx.Amount)
			require.Equal(t, tx.CreatedAt+int64((7*day).Seconds()), tx.ExpiresAt)
			require.Equal(t, before-2000, env.balance(t, usdc, alice))

			fees, err := env.admin.GetFeeBalance(context.Background(), usdc)
			require.NoError(t, err)
			require.Equal(t, uint64(2), fees)
		})

		t.Run("ids are sequential", func(t *testing.T) {
			first := env.initiate(t, 10)
			second := env.initiate(t, 10)
			require.Equal(t, first.Id+1, second.Id)
		})
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, nil, false)
		ctx := context.Background()

		fixtures := []struct {
			name     string
			sender   string
			req      OutboundRequest
			expected func(t *testing.T, err error)
		}{
			{
				name:   "missing recipient",
				sender: alice,
				req:    OutboundRequest{Asset: usdc, Amount: 10, DestChainId: polygon},
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.ZERO_ADDRESS, err)
				},
			},
			{
				name:   "zero amount",
				sender: alice,
				req:    OutboundRequest{Asset: usdc, Recipient: bob, DestChainId: polygon},
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.ZERO_AMOUNT, err)
				},
			},
			{
				name:   "asset not listed",
				sender: alice,
				req: OutboundRequest{
					Asset: dai, Recipient: bob, Amount: 10, DestChainId: polygon,
				},
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.TOKEN_NOT_LISTED, err)
				},
			},
			{
				name:   "chain not supported",
				sender: alice,
				req:    OutboundRequest{Asset: usdc, Recipient: bob, Amount: 10, DestChainId: 99},
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.CHAIN_NOT_SUPPORTED, err)
				},
			},
			{
				name:   "insufficient balance",
				sender: bob,
				req: OutboundRequest{
					Asset: usdc, Recipient: alice, Amount: 10, DestChainId: polygon,
				},
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.INSUFFICIENT_BALANCE, err)
				},
			},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := env.svc.InitiateOutbound(ctx, f.sender, f.req)
				f.expected(t, err)
			})
		}

		txs, err := env.svc.ListTransactions(ctx, domain.TransactionFilter{})
		require.NoError(t, err)
		require.Empty(t, txs)
		require.Equal(t, initialBalance, env.balance(t, usdc, alice))
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	require.NoError(t, env.admin.UpdateParameter(ctx, manager, domain.ParamHourlyTransactionLimit, 2))

	env.initiate(t, 10)
	env.clock.advance(30 * time.Minute)
	env.initiate(t, 10)

	_, err := env.svc.InitiateOutbound(ctx, alice, OutboundRequest{
		Asset: usdc, Recipient: bob, Amount: 10, DestChainId: polygon,
	})
	requireCode(t, errors.RATE_LIMIT_EXCEEDED, err)

	info, err := env.svc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.TxsInLastHour)

	env.clock.advance(31 * time.Minute)
	env.initiate(t, 10)
}

func TestFailedWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("inbound is released once", func(t *testing.T) {
		env, txs := newFlakyTestEnv(t, nil)

		var txId uint64
		for _, relayer := range relayers[:2] {
			res, err := env.svc.ProcessInbound(ctx, relayer, inboundReport("0xflaky", 2000))
			require.NoError(t, err)
			require.False(t, res.Finalized)
			txId = res.TxId
		}

		txs.fail(1)
		_, err := env.svc.ProcessInbound(ctx, relayers[2], inboundReport("0xflaky", 2000))
		requireCode(t, errors.INTERNAL_ERROR, err)
		require.Zero(t, env.balance(t, usdc, bob))

		tx, err := env.svc.GetTransaction(ctx, txId)
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusPending, tx.Status)
		require.Equal(t, 2, tx.ConfirmCount())

		res, err := env.svc.ProcessInbound(ctx, relayers[2], inboundReport("0xflaky", 2000))
		require.NoError(t, err)
		require.True(t, res.Finalized)
		require.Equal(t, uint64(2000), env.balance(t, usdc, bob))

		_, err = env.svc.ProcessInbound(ctx, relayers[3], inboundReport("0xflaky", 2000))
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
		require.Equal(t, uint64(2000), env.balance(t, usdc, bob))
	})

	t.Run("outbound is rolled back", func(t *testing.T) {
		env, txs := newFlakyTestEnv(t, nil)
		require.NoError(t, env.admin.UpdateParameter(
			ctx, manager, domain.ParamHourlyTransactionLimit, 1,
		))

		txs.fail(-1)
		_, err := env.svc.InitiateOutbound(ctx, alice, OutboundRequest{
			Asset: usdc, Recipient: bob, Amount: 5000, DestChainId: polygon,
		})
		requireCode(t, errors.INTERNAL_ERROR, err)

		require.Equal(t, initialBalance, env.balance(t, usdc, alice))
		fees, err := env.admin.GetFeeBalance(ctx, usdc)
		require.NoError(t, err)
		require.Zero(t, fees)
		list, err := env.svc.ListTransactions(ctx, domain.TransactionFilter{})
		require.NoError(t, err)
		require.Empty(t, list)
		info, err := env.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Zero(t, info.TxsInLastHour)

		txs.fail(0)
		tx := env.initiate(t, 5000)
		require.Equal(t, uint64(5), tx.Fee)
		require.Equal(t, initialBalance-5000, env.balance(t, usdc, alice))
	})

	t.Run("failed release is not retried", func(t *testing.T) {
		ledger := &mockLedger{}
		ledger.On("Mint", mock.Anything, usdc, bob, uint64(999)).
			Return(fmt.Errorf("ledger unavailable"))

		env := newTestEnv(t, ledger, false)

		_, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0xstuck", 999))
		requireCode(t, errors.INTERNAL_ERROR, err)

		select {
		case topic := <-env.alerts.topics:
			require.Equal(t, ports.ReleaseFailed, topic)
		case <-time.After(time.Second):
			t.Fatal("expected release failure alert")
		}

		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0xstuck", 999))
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
		ledger.AssertNumberOfCalls(t, "Mint", 1)
	})

	t.Run("failed debit frees the rate slot", func(t *testing.T) {
		ledger := &mockLedger{}
		ledger.On("BalanceOf", mock.Anything, usdc, alice).Return(initialBalance, nil)
		ledger.On("Debit", mock.Anything, usdc, alice, uint64(10)).
			Return(fmt.Errorf("ledger unavailable")).Once()
		ledger.On("Debit", mock.Anything, usdc, alice, uint64(10)).Return(nil)

		env := newTestEnv(t, ledger, false)
		require.NoError(t, env.admin.UpdateParameter(
			ctx, manager, domain.ParamHourlyTransactionLimit, 1,
		))

		req := OutboundRequest{Asset: usdc, Recipient: bob, Amount: 10, DestChainId: polygon}
		_, err := env.svc.InitiateOutbound(ctx, alice, req)
		requireCode(t, errors.INTERNAL_ERROR, err)

		_, err = env.svc.InitiateOutbound(ctx, alice, req)
		require.NoError(t, err)

		_, err = env.svc.InitiateOutbound(ctx, alice, req)
		requireCode(t, errors.RATE_LIMIT_EXCEEDED, err)
		ledger.AssertNumberOfCalls(t, "Debit", 2)
	})
}

func TestConfirmOutbound(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	t.Run("quorum", func(t *testing.T) {
		tx := env.initiate(t, 2000)
		require.Equal(t, domain.TxStatusPending, tx.Status)

		for i, relayer := range relayers[:3] {
			tx, err := env.svc.ConfirmOutbound(ctx, relayer, tx.Id)
			require.NoError(t, err)
			require.Equal(t, i+1, tx.ConfirmCount())
		}

		tx, err := env.svc.GetTransaction(ctx, tx.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusCompleted, tx.Status)
		require.NotZero(t, tx.EndedAt)

		_, err = env.svc.ConfirmOutbound(ctx, relayers[3], tx.Id)
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
	})

	t.Run("invalid", func(t *testing.T) {
		pending := env.initiate(t, 5000)
		_, err := env.svc.ConfirmOutbound(ctx, relayers[0], pending.Id)
		require.NoError(t, err)

		inbound, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0xin", 5000))
		require.NoError(t, err)

		fixtures := []struct {
			name     string
			relayer  string
			txId     uint64
			expected func(t *testing.T, err error)
		}{
			{
				name:    "not a relayer",
				relayer: alice,
				txId:    pending.Id,
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.UNAUTHORIZED, err)
				},
			},
			{
				name:    "duplicate attestation",
				relayer: relayers[0],
				txId:    pending.Id,
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.ALREADY_CONFIRMED, err)
				},
			},
			{
				name:    "unknown transaction",
				relayer: relayers[1],
				txId:    1000,
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.TRANSACTION_NOT_FOUND, err)
				},
			},
			{
				name:    "inbound transaction",
				relayer: relayers[1],
				txId:    inbound.TxId,
				expected: func(t *testing.T, err error) {
					requireCode(t, errors.INVALID_TRANSACTION_DIRECTION, err)
				},
			},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := env.svc.ConfirmOutbound(ctx, f.relayer, f.txId)
				f.expected(t, err)
			})
		}

		tx, err := env.svc.GetTransaction(ctx, pending.Id)
		require.NoError(t, err)
		require.Equal(t, 1, tx.ConfirmCount())
	})

	t.Run("after expiry", func(t *testing.T) {
		tx := env.initiate(t, 5000)
		env.clock.advance(7*day + time.Second)

		_, err := env.svc.ConfirmOutbound(ctx, relayers[0], tx.Id)
		requireCode(t, errors.TRANSACTION_EXPIRED, err)
	})
}

func TestProcessInbound(t *testing.T) {
	ctx := context.Background()

	t.Run("below threshold", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		res, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x01", 999))
		require.NoError(t, err)
		require.True(t, res.Created)
		require.True(t, res.Finalized)
		require.Equal(t, 1, res.ConfirmCount)
		require.Equal(t, uint64(999), env.balance(t, usdc, bob))

		tx, err := env.svc.GetTransaction(ctx, res.TxId)
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusCompleted, tx.Status)
		require.Equal(t, domain.DirectionInbound, tx.Direction)
		require.Zero(t, tx.Fee)

		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0x01", 999))
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
		require.Equal(t, uint64(999), env.balance(t, usdc, bob))
	})

	t.Run("quorum", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		res, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x02", 2000))
		require.NoError(t, err)
		require.True(t, res.Created)
		require.False(t, res.Finalized)

		res, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0x02", 2000))
		require.NoError(t, err)
		require.False(t, res.Created)
		require.False(t, res.Finalized)
		require.Equal(t, 2, res.ConfirmCount)
		require.Zero(t, env.balance(t, usdc, bob))

		res, err = env.svc.ProcessInbound(ctx, relayers[2], inboundReport("0x02", 2000))
		require.NoError(t, err)
		require.True(t, res.Finalized)
		require.Equal(t, 3, res.ConfirmCount)
		require.Equal(t, uint64(2000), env.balance(t, usdc, bob))

		_, err = env.svc.ProcessInbound(ctx, relayers[3], inboundReport("0x02", 2000))
		requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)
		require.Equal(t, uint64(2000), env.balance(t, usdc, bob))

		tx, err := env.svc.GetTransaction(ctx, res.TxId)
		require.NoError(t, err)
		require.Equal(t, domain.TxStatusCompleted, tx.Status)
		require.True(t, tx.HasAttested(relayers[2]))
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		res, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x03", 5000))
		require.NoError(t, err)

		_, err = env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x03", 5000))
		requireCode(t, errors.ALREADY_CONFIRMED, err)

		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0x03", 5001))
		requireCode(t, errors.ATTESTATION_MISMATCH, err)

		_, err = env.svc.ProcessInbound(ctx, alice, inboundReport("0x04", 5000))
		requireCode(t, errors.UNAUTHORIZED, err)

		report := inboundReport("0x05", 5000)
		report.Asset = dai
		_, err = env.svc.ProcessInbound(ctx, relayers[1], report)
		requireCode(t, errors.TOKEN_NOT_LISTED, err)

		report = inboundReport("0x05", 5000)
		report.SourceChainId = 99
		_, err = env.svc.ProcessInbound(ctx, relayers[1], report)
		requireCode(t, errors.CHAIN_NOT_SUPPORTED, err)

		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("", 5000))
		requireCode(t, errors.ZERO_ADDRESS, err)

		tx, err := env.svc.GetTransaction(ctx, res.TxId)
		require.NoError(t, err)
		require.Equal(t, 1, tx.ConfirmCount())

		env.clock.advance(7*day + time.Second)
		_, err = env.svc.ProcessInbound(ctx, relayers[1], inboundReport("0x03", 5000))
		requireCode(t, errors.TRANSACTION_EXPIRED, err)
	})

	t.Run("concurrent reports", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		wg := &sync.WaitGroup{}
		for _, relayer := range relayers {
			wg.Add(1)
			go func(relayer string) {
				defer wg.Done()
				// The 4th report may be rejected once the quorum is reached.
				_, _ = env.svc.ProcessInbound(ctx, relayer, inboundReport("0x06", 2000))
			}(relayer)
		}
		wg.Wait()

		require.Equal(t, uint64(2000), env.balance(t, usdc, bob))

		txs, err := env.svc.ListTransactions(ctx, domain.TransactionFilter{
			Direction: domain.DirectionInbound,
		})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.Equal(t, domain.TxStatusCompleted, txs[0].Status)
		require.Equal(t, 3, txs[0].ConfirmCount())
	})

	t.Run("concurrent duplicate reports", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		count := 10
		errs := make(chan error, count)
		wg := &sync.WaitGroup{}
		for i := 0; i < count; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x07", 500))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		failures := 0
		for err := range errs {
			if err != nil {
				failures++
			}
		}
		require.Equal(t, count-1, failures)
		require.Equal(t, uint64(500), env.balance(t, usdc, bob))
	})
}

func TestExpireTransaction(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	tx := env.initiate(t, 5000)
	escrowed := env.balance(t, usdc, alice)

	env.clock.advance(6 * day)
	_, err := env.svc.ExpireTransaction(ctx, tx.Id)
	requireCode(t, errors.NOT_EXPIRED_YET, err)

	env.clock.advance(2 * day)
	expired, err := env.svc.ExpireTransaction(ctx, tx.Id)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusExpired, expired.Status)
	require.Equal(t, env.clock.Now().Unix(), expired.EndedAt)
	// Escrowed funds are not returned on expiry.
	require.Equal(t, escrowed, env.balance(t, usdc, alice))

	_, err = env.svc.ExpireTransaction(ctx, tx.Id)
	requireCode(t, errors.INVALID_TRANSACTION_STATUS, err)

	_, err = env.svc.ExpireTransaction(ctx, 1000)
	requireCode(t, errors.TRANSACTION_NOT_FOUND, err)

	pending, err := env.svc.ListTransactions(ctx, domain.TransactionFilter{
		Status: domain.TxStatusPending,
	})
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestAutoExpire(t *testing.T) {
	env := newTestEnv(t, nil, true)
	ctx := context.Background()

	info, err := env.svc.GetInfo(ctx)
	require.NoError(t, err)
	require.True(t, info.AutoExpire)

	tx := env.initiate(t, 5000)
	completed := env.initiate(t, 10)
	require.Equal(t, domain.TxStatusCompleted, completed.Status)

	// Give the events handler the time to schedule the expiry.
	time.Sleep(100 * time.Millisecond)
	env.clock.advance(8 * day)

	require.Eventually(t, func() bool {
		tx, err := env.svc.GetTransaction(ctx, tx.Id)
		return err == nil && tx.Status == domain.TxStatusExpired
	}, 5*time.Second, 20*time.Millisecond)

	completed, err = env.svc.GetTransaction(ctx, completed.Id)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusCompleted, completed.Status)
}

func TestPause(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ctx := context.Background()

	requireCode(t, errors.UNAUTHORIZED, env.admin.Pause(ctx, manager))
	requireCode(t, errors.UNAUTHORIZED, env.admin.Pause(ctx, ""))

	require.NoError(t, env.admin.Pause(ctx, pauser))
	require.Equal(t, ports.RelayPaused, <-env.alerts.topics)

	_, err := env.svc.InitiateOutbound(ctx, alice, OutboundRequest{
		Asset: usdc, Recipient: bob, Amount: 10, DestChainId: polygon,
	})
	requireCode(t, errors.SERVICE_PAUSED, err)

	_, err = env.svc.ProcessInbound(ctx, relayers[0], inboundReport("0x01", 10))
	requireCode(t, errors.SERVICE_PAUSED, err)

	info, err := env.svc.GetInfo(ctx)
	require.NoError(t, err)
	require.True(t, info.Paused)

	require.NoError(t, env.admin.Unpause(ctx, pauser))
	require.Equal(t, ports.RelayUnpaused, <-env.alerts.topics)

	env.initiate(t, 10)
}

func TestEventsChannel(t *testing.T) {
	env := newTestEnv(t, nil, false)
	ch := env.svc.GetEventsChannel(context.Background())

	// Drain the registry events of the setup.
	for i := 0; i < 3; i++ {
		events := <-ch
		require.Equal(t, domain.RegistryTopic, events[0].GetTopic())
	}

	tx := env.initiate(t, 999)

	select {
	case events := <-ch:
		require.Len(t, events, 2)
		require.Equal(t, fmt.Sprint(tx.Id), events[0].GetId())
		require.Equal(t, domain.EventTypeTransactionCreated, events[0].GetType())
		require.Equal(t, domain.EventTypeTransactionCompleted, events[1].GetType())
	case <-time.After(time.Second):
		t.Fatal("no events received")
	}
}
