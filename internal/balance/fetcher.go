package balance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fystack/identity-minter/pkg/common/logger"
)

// Reader is the part of a wallet session the fetcher needs.
type Reader interface {
	GetBalance(ctx context.Context) (string, error)
}

// Fetcher refreshes a wallet balance with at most one request in flight.
// Calls made while a request is pending return immediately instead of
// queueing.
type Fetcher struct {
	wallet   Reader
	inFlight atomic.Bool

	mu      sync.RWMutex
	last    WalletBalance
	updated time.Time
}

func NewFetcher(wallet Reader) *Fetcher {
	return &Fetcher{wallet: wallet, last: Zero()}
}

// Refresh fetches and decodes the balance. started is false when another
// refresh was already running; the cached balance is returned in that case.
func (f *Fetcher) Refresh(ctx context.Context) (wb WalletBalance, started bool, err error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		logger.Debug("Balance fetch already in progress, skipping")
		wb, _ = f.Last()
		return wb, false, nil
	}
	defer f.inFlight.Store(false)

	raw, err := f.wallet.GetBalance(ctx)
	if err != nil {
		wb, _ = f.Last()
		return wb, true, err
	}
	wb = Decode(raw)

	f.mu.Lock()
	f.last, f.updated = wb, time.Now()
	f.mu.Unlock()
	return wb, true, nil
}

// Last returns the most recent balance and when it was fetched.
func (f *Fetcher) Last() (WalletBalance, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.updated
}

// InFlight reports whether a refresh is running.
func (f *Fetcher) InFlight() bool { return f.inFlight.Load() }
