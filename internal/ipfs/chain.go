package ipfs

import (
	"context"
	"fmt"
	"time"

	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/common/types"
	"github.com/fystack/identity-minter/pkg/infra"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
)

// Chain tries each uploader in order and returns the first success.
type Chain struct {
	uploaders []Uploader
	maxBytes  int64
}

var _ Uploader = (*Chain)(nil)

func NewChain(maxBytes int64, uploaders ...Uploader) *Chain {
	return &Chain{uploaders: uploaders, maxBytes: maxBytes}
}

// NewChainFromConfig builds the providers listed in cfg, skipping remote
// providers whose credentials are missing.
func NewChainFromConfig(cfg config.IPFSConfig, kv infra.KVStore, rl *ratelimiter.HostLimiter) *Chain {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var uploaders []Uploader
	for _, p := range cfg.Providers {
		switch p {
		case enum.IPFSProviderNFTStorage:
			if !configured(cfg.NFTStorageKey) {
				logger.Debug("NFT.Storage key not set, provider skipped")
				continue
			}
			uploaders = append(uploaders, NewNFTStorage(cfg.NFTStorageURL, cfg.NFTStorageKey, timeout, rl))
		case enum.IPFSProviderPinata:
			if !configured(cfg.PinataAPIKey, cfg.PinataSecret) {
				logger.Debug("Pinata keys not set, provider skipped")
				continue
			}
			uploaders = append(uploaders, NewPinata(cfg.PinataURL, cfg.PinataAPIKey, cfg.PinataSecret, timeout, rl))
		case enum.IPFSProviderLocal:
			if kv != nil {
				uploaders = append(uploaders, NewLocal(kv, cfg.Gateway))
			}
		}
	}
	return NewChain(cfg.MaxUploadBytes, uploaders...)
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Providers() []string {
	names := make([]string, len(c.uploaders))
	for i, u := range c.uploaders {
		names[i] = u.Name()
	}
	return names
}

func (c *Chain) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), c.maxBytes)
	}
	if len(c.uploaders) == 0 {
		return nil, ErrNoProviders
	}

	errs := &types.MultiError{}
	for _, u := range c.uploaders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := u.Upload(ctx, data, filename)
		if err != nil {
			logger.Warn("IPFS provider failed, trying next", "provider", u.Name(), "error", err)
			errs.Add(fmt.Errorf("%s: %w", u.Name(), err))
			continue
		}
		logger.Info("Uploaded to IPFS", "provider", u.Name(), "cid", res.CID)
		return res, nil
	}
	return nil, fmt.Errorf("upload to ipfs failed: %w", errs)
}
