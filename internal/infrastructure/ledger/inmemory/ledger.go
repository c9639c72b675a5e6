package inmemoryledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/arkade-os/relayd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// EscrowAccount is the account holding the funds locked by the relay.
const EscrowAccount = "relay:escrow"

// Balances maps an asset address to the balance of each account.
type Balances map[string]map[string]uint64

type ledger struct {
	lock     sync.RWMutex
	balances Balances
}

func NewLedger(initialBalances Balances) ports.Ledger {
	balances := make(Balances)
	for asset, accounts := range initialBalances {
		balances[asset] = make(map[string]uint64)
		for account, amount := range accounts {
			balances[asset][account] = amount
		}
	}
	return &ledger{balances: balances}
}

// NewLedgerFromFile seeds the ledger with the balances found in the given
// json file. An empty path means an empty ledger.
func NewLedgerFromFile(path string) (ports.Ledger, error) {
	if len(path) == 0 {
		return NewLedger(nil), nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read balances file: %w", err)
	}
	var balances Balances
	if err := json.Unmarshal(buf, &balances); err != nil {
		return nil, fmt.Errorf("failed to parse balances file: %w", err)
	}

	log.Debugf("ledger seeded with balances of %d assets", len(balances))
	return NewLedger(balances), nil
}

func (l *ledger) Debit(_ context.Context, asset, account string, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.transfer(asset, account, EscrowAccount, amount)
}

func (l *ledger) Credit(_ context.Context, asset, account string, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.transfer(asset, EscrowAccount, account, amount)
}

func (l *ledger) Mint(_ context.Context, asset, account string, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	accounts := l.accounts(asset)
	if accounts[account] > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow")
	}
	accounts[account] += amount
	return nil
}

func (l *ledger) BalanceOf(_ context.Context, asset, account string) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[asset][account], nil
}

// transfer must be called with the lock held.
func (l *ledger) transfer(asset, from, to string, amount uint64) error {
	accounts := l.accounts(asset)
	if accounts[from] < amount {
		return ports.ErrInsufficientFunds
	}
	if accounts[to] > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow")
	}
	accounts[from] -= amount
	accounts[to] += amount
	return nil
}

func (l *ledger) accounts(asset string) map[string]uint64 {
	if _, ok := l.balances[asset]; !ok {
		l.balances[asset] = make(map[string]uint64)
	}
	return l.balances[asset]
}
