package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/retry"
)

// Estimate maps wall-clock time to a slot using the network's slot timing.
// The offset is an empirical correction and may drift; a chain-tip source
// avoids the guess entirely.
func Estimate(now time.Time, timing config.SlotTiming) (uint64, error) {
	if timing.SlotLength <= 0 {
		return 0, errors.New("slot length must be positive")
	}
	if now.Before(timing.ZeroTime) {
		return 0, fmt.Errorf("time %s is before slot zero time %s", now.UTC(), timing.ZeroTime.UTC())
	}
	elapsed := now.Sub(timing.ZeroTime) / timing.SlotLength
	slot := int64(timing.ZeroSlot) + int64(elapsed) + timing.Offset
	if slot <= 0 {
		return 0, fmt.Errorf("estimated slot %d is not positive", slot)
	}
	return uint64(slot), nil
}

// Source reports the current slot.
type Source interface {
	CurrentSlot(ctx context.Context) (uint64, error)
}

// WallClock estimates the slot from the local clock.
type WallClock struct {
	Timing config.SlotTiming
	Now    func() time.Time
}

func NewWallClock(timing config.SlotTiming) *WallClock {
	return &WallClock{Timing: timing, Now: time.Now}
}

func (w *WallClock) CurrentSlot(_ context.Context) (uint64, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return Estimate(now(), w.Timing)
}

type tipReader interface {
	GetLatestBlock(ctx context.Context) (*cardano.BlockResponse, error)
}

// ChainTip reads the slot of the latest block from the chain indexer,
// retrying transient failures. When Fallback is set it is used after the
// retries are exhausted.
type ChainTip struct {
	client   tipReader
	Fallback Source
	Retry    retry.ExponentialConfig
}

func NewChainTip(client tipReader, fallback Source) *ChainTip {
	return &ChainTip{
		client:   client,
		Fallback: fallback,
		Retry: retry.ExponentialConfig{
			InitialInterval: retry.DefaultInterval,
			MaxInterval:     5 * time.Second,
			MaxElapsedTime:  20 * time.Second,
			MaxRetries:      retry.DefaultMaxAttempts,
		},
	}
}

func (c *ChainTip) CurrentSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	cfg := c.Retry
	cfg.OnRetry = func(err error, next time.Duration) {
		logger.Warn("Fetching chain tip failed, retrying", "err", err, "next", next)
	}
	err := retry.Exponential(ctx, func() error {
		block, err := c.client.GetLatestBlock(ctx)
		if err != nil {
			return err
		}
		if block.Slot == 0 {
			return errors.New("chain tip has no slot")
		}
		slot = block.Slot
		return nil
	}, cfg)
	if err == nil {
		return slot, nil
	}
	if c.Fallback != nil {
		logger.Warn("Chain tip unavailable, estimating slot from clock", "err", err)
		return c.Fallback.CurrentSlot(ctx)
	}
	return 0, fmt.Errorf("fetch chain tip: %w", err)
}
