package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ipfs"
	"github.com/fystack/identity-minter/internal/minter"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/internal/slot"
	"github.com/fystack/identity-minter/internal/wallet"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/events"
	"github.com/fystack/identity-minter/pkg/infra"
	"github.com/fystack/identity-minter/pkg/kvstore"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
	"github.com/fystack/identity-minter/pkg/retry"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg        *config.Config
	limiter    *ratelimiter.HostLimiter
	chain      *cardano.CardanoClient
	wallClock  *slot.WallClock
	slots      slot.Source
	kv         infra.KVStore
	identities *identity.Store
	uploader   *ipfs.Chain
	fetcher    *ipfs.Fetcher
	emitter    events.Emitter

	// nil until connectWallet succeeds
	conn *wallet.Connection
}

var readRetry = retry.ExponentialConfig{
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	MaxElapsedTime:  30 * time.Second,
	MaxRetries:      5,
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		limiter: ratelimiter.NewHostLimiter(cfg.Blockfrost.RPS, cfg.Blockfrost.Burst),
		emitter: events.Noop{},
	}

	bf := cfg.Blockfrost
	if bf.ProjectID == "" {
		logger.Warn("Blockfrost project id not set, chain requests will be rejected", "env", bf.ProjectIDEnv)
	}
	a.chain = cardano.NewCardanoClient(bf.URL, cardano.ProjectAuth(bf.ProjectID), bf.Timeout, a.limiter)

	a.wallClock = slot.NewWallClock(cfg.ActiveNetwork().Slot)
	a.slots = a.wallClock
	if cfg.Mint.SlotSource == enum.SlotSourceChainTip {
		a.slots = slot.NewChainTip(a.chain, a.wallClock)
	}

	kv, err := kvstore.NewFromConfig(cfg.Services.KVS)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	a.kv = kv
	a.identities = identity.NewStore(kv)
	a.uploader = ipfs.NewChainFromConfig(cfg.IPFS, kv, a.limiter)
	a.fetcher = ipfs.NewFetcher(ipfs.NewLocal(kv, cfg.IPFS.Gateway), cfg.IPFS.Gateway, cfg.IPFS.Timeout, a.limiter).
		WithRetry(readRetry)

	if cfg.Services.Nats.Enabled {
		nc, err := infra.GetNATSConnection(cfg.Services.Nats, cfg.Environment)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.emitter = events.NewEmitter(infra.NewNATSPublisher(nc), cfg.Services.Nats.SubjectPrefix)
		logger.Info("Publishing minted events", "url", nc.ConnectedUrl())
	}
	return a, nil
}

// connectWallet loads the signing key and connects it as the session wallet.
func (a *app) connectWallet(ctx context.Context, approver wallet.Approver) (*wallet.Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	key, err := wallet.LoadSigningKey(a.cfg.Wallet.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wallet.ErrNotConnected, err)
	}
	if approver == nil && a.cfg.Wallet.ConfirmSign {
		approver = wallet.NewPromptApprover(os.Stdin, os.Stderr)
	}
	kw := wallet.NewKeyWallet(key, a.cfg.Network, a.chain, approver).WithRetry(readRetry)

	conn, err := wallet.Connect(ctx, kw, a.cfg.Network)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	return conn, nil
}

func (a *app) newMinter(api wallet.API) *minter.Minter {
	opts := []minter.Option{minter.WithEmitter(a.emitter)}
	if a.cfg.Mint.FetchProtocolParams {
		opts = append(opts, minter.WithParamsSource(a.chain))
	}
	return minter.New(api, a.slots, minter.ConfigFrom(a.cfg), opts...)
}

func (a *app) Close() {
	if a.emitter != nil {
		a.emitter.Close()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			logger.Warn("Closing kv store failed", "error", err)
		}
	}
}
