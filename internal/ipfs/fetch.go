package ipfs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
	"github.com/fystack/identity-minter/pkg/retry"
)

// Fetcher reads content from the local store first, then from a public gateway.
type Fetcher struct {
	local   *Local
	gateway *rpc.BaseClient
	retry   retry.ExponentialConfig
}

func NewFetcher(local *Local, gatewayURL string, timeout time.Duration, rl *ratelimiter.HostLimiter) *Fetcher {
	return &Fetcher{
		local:   local,
		gateway: rpc.NewBaseClient(gatewayURL, "ipfs", rpc.ClientTypeREST, nil, timeout, rl).WithAccept("*/*"),
		retry: retry.ExponentialConfig{
			InitialInterval: retry.DefaultInterval,
			MaxInterval:     5 * time.Second,
			MaxRetries:      retry.DefaultMaxAttempts,
		},
	}
}

func (f *Fetcher) WithRetry(cfg retry.ExponentialConfig) *Fetcher {
	f.retry = cfg
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, cid string) ([]byte, error) {
	cid = normalizeCID(cid)
	if f.local != nil {
		data, found, err := f.local.Get(cid)
		if err != nil {
			return nil, err
		}
		if found {
			return data, nil
		}
	}

	var data []byte
	err := retry.Exponential(ctx, func() error {
		var err error
		data, err = f.gateway.DoRaw(ctx, http.MethodGet, "/"+cid, nil, "")
		if rpc.IsNotFound(err) {
			return retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, cid))
		}
		return err
	}, f.retry)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists checks the local store, then issues a HEAD against the gateway.
func (f *Fetcher) Exists(ctx context.Context, cid string) bool {
	cid = normalizeCID(cid)
	if f.local != nil {
		if ok, err := f.local.Has(cid); err == nil && ok {
			return true
		}
	}
	_, err := f.gateway.DoRaw(ctx, http.MethodHead, "/"+cid, nil, "")
	return err == nil
}

func normalizeCID(cid string) string {
	return strings.TrimPrefix(strings.TrimSpace(cid), "ipfs://")
}
