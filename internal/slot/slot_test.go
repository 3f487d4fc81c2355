package slot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/retry"
)

func preset(t *testing.T, n enum.Network) config.SlotTiming {
	t.Helper()
	p, ok := config.Preset(n)
	require.True(t, ok)
	return p.Slot
}

func TestEstimate_Networks(t *testing.T) {
	tests := []struct {
		name    string
		network enum.Network
		now     time.Time
		want    uint64
	}{
		{"mainnet shelley start", enum.NetworkMainnet, time.Unix(1596059091, 0), 4492800},
		{"mainnet one day later", enum.NetworkMainnet, time.Unix(1596059091+86400, 0), 4492800 + 86400},
		{"preprod", enum.NetworkPreprod, time.Unix(1655769600+1000, 0), 86400 + 1000},
		{"preview", enum.NetworkPreview, time.Unix(1666656000+42, 500), 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.now, preset(t, tt.network))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimate_Offset(t *testing.T) {
	timing := preset(t, enum.NetworkPreview)
	timing.Offset = -10
	got, err := Estimate(time.Unix(1666656000+100, 0), timing)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), got)
}

func TestEstimate_Errors(t *testing.T) {
	timing := preset(t, enum.NetworkPreview)

	_, err := Estimate(time.Unix(1666656000-1, 0), timing)
	assert.Error(t, err)

	_, err = Estimate(time.Unix(1666656000, 0), timing)
	assert.Error(t, err, "slot zero is never a usable ttl base")

	timing.SlotLength = 0
	_, err = Estimate(time.Now(), timing)
	assert.Error(t, err)
}

func TestWallClock(t *testing.T) {
	w := NewWallClock(preset(t, enum.NetworkPreview))
	w.Now = func() time.Time { return time.Unix(1666656000+7200, 0) }

	got, err := w.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7200), got)
}

type fakeTip struct {
	fails int
	calls int
	slot  uint64
}

func (f *fakeTip) GetLatestBlock(context.Context) (*cardano.BlockResponse, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("503")
	}
	return &cardano.BlockResponse{Slot: f.slot}, nil
}

func fastRetry() retry.ExponentialConfig {
	return retry.ExponentialConfig{InitialInterval: time.Millisecond, MaxRetries: 2}
}

func TestChainTip_RetriesThenSucceeds(t *testing.T) {
	tip := &fakeTip{fails: 2, slot: 123456}
	src := NewChainTip(tip, nil)
	src.Retry = fastRetry()

	got, err := src.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), got)
	assert.Equal(t, 3, tip.calls)
}

func TestChainTip_Fallback(t *testing.T) {
	wc := NewWallClock(preset(t, enum.NetworkPreview))
	wc.Now = func() time.Time { return time.Unix(1666656000+5, 0) }

	src := NewChainTip(&fakeTip{fails: 100}, wc)
	src.Retry = fastRetry()
	got, err := src.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got)

	src.Fallback = nil
	_, err = src.CurrentSlot(context.Background())
	assert.ErrorContains(t, err, "fetch chain tip")
}
