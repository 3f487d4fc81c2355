package minter

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/internal/slot"
	"github.com/fystack/identity-minter/internal/wallet"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/events"
)

type Stage string

const (
	StageResolvingAddress  Stage = "resolving_address"
	StageBuildingPolicy    Stage = "building_policy"
	StageEstimatingSlot    Stage = "estimating_slot"
	StageBuildingMetadata  Stage = "building_metadata"
	StageSelectingInputs   Stage = "selecting_inputs"
	StageAwaitingSignature Stage = "awaiting_signature"
	StageSubmitting        Stage = "submitting"
	StageSubmitted         Stage = "submitted"
)

type Progress struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

type ProgressFunc func(Progress)

// Result identifies the minted asset. Unit is PolicyID followed by the hex
// encoded asset name.
type Result struct {
	PolicyID  string `json:"policyId"`
	AssetName string `json:"assetName"`
	TxHash    string `json:"txHash"`
	Unit      string `json:"unit"`
	Owner     string `json:"owner"`
	TTL       uint64 `json:"ttl"`
	Fee       uint64 `json:"fee"`
}

// Minter mints identity NFTs through a connected wallet. One mint runs at a
// time per Minter; the wallet's UTxOs are not reserved between calls.
type Minter struct {
	wallet    wallet.API
	slots     slot.Source
	cfg       Config
	paramsSrc ParamsSource
	emitter   events.Emitter
	now       func() time.Time
	rnd       *rand.Rand

	running atomic.Bool
}

type Option func(*Minter)

// WithParamsSource refreshes fee parameters before each build.
func WithParamsSource(p ParamsSource) Option { return func(m *Minter) { m.paramsSrc = p } }

func WithEmitter(e events.Emitter) Option { return func(m *Minter) { m.emitter = e } }

func WithClock(now func() time.Time) Option { return func(m *Minter) { m.now = now } }

// WithRand fixes coin selection randomness.
func WithRand(r *rand.Rand) Option { return func(m *Minter) { m.rnd = r } }

func New(api wallet.API, slots slot.Source, cfg Config, opts ...Option) *Minter {
	m := &Minter{
		wallet:  api,
		slots:   slots,
		cfg:     cfg,
		emitter: events.Noop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AssetName is prefix followed by the Unix time in milliseconds.
func AssetName(prefix string, now time.Time) string {
	return prefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// plan holds everything decided before coin selection.
type plan struct {
	addr      ledger.Address
	keyHash   ledger.Hash28
	script    ledger.NativeScript
	policy    ledger.Hash28
	assetName string
	slot      uint64
	ttl       uint64
	metadata  ledger.Metadata
}

func (p plan) unit() string {
	return ledger.AssetID{Policy: p.policy, Name: p.assetName}.Unit()
}

func (m *Minter) plan(ctx context.Context, rawAddr string, meta identity.Metadata, report func(Stage, string)) (*plan, error) {
	addr, err := ledger.ParseAddress(rawAddr)
	if err != nil {
		return nil, newError(CodeAddressUnresolved, err)
	}
	if m.cfg.Network != "" && int(addr.NetworkID()) != m.cfg.Network.ID() {
		return nil, newError(CodeAddressUnresolved,
			fmt.Errorf("%w: address network %d, expected %s", wallet.ErrNetworkMismatch, addr.NetworkID(), m.cfg.Network))
	}
	keyHash, err := addr.PaymentKeyHash()
	if err != nil {
		return nil, newError(CodeAddressUnresolved, err)
	}

	report(StageBuildingPolicy, "building minting policy")
	script := ledger.NewPubkeyScript(keyHash)
	policy, err := script.Hash()
	if err != nil {
		return nil, newError(CodeBuildFailed, err)
	}
	assetName := AssetName(m.cfg.AssetNamePrefix, m.now())

	report(StageEstimatingSlot, "estimating current slot")
	current, err := m.slots.CurrentSlot(ctx)
	if err != nil {
		return nil, newError(CodeBuildFailed, fmt.Errorf("current slot: %w", err))
	}

	report(StageBuildingMetadata, "assembling NFT metadata")
	return &plan{
		addr:      addr,
		keyHash:   keyHash,
		script:    script,
		policy:    policy,
		assetName: assetName,
		slot:      current,
		ttl:       current + m.cfg.TTLBufferSlots,
		metadata:  CIP25Metadata(policy.String(), assetName, meta, m.cfg.MediaType),
	}, nil
}

// Mint builds, signs through the wallet and submits a transaction minting
// one identity NFT to the wallet's change address. A failed mint leaves
// nothing behind; retrying starts over with a new asset name and TTL.
func (m *Minter) Mint(ctx context.Context, meta identity.Metadata, onProgress ProgressFunc) (*Result, error) {
	if m.wallet == nil {
		return nil, newError(CodeWalletNotConnected, wallet.ErrNotConnected)
	}
	if !m.running.CompareAndSwap(false, true) {
		return nil, newError(CodeMintInProgress, nil)
	}
	defer m.running.Store(false)

	report := func(stage Stage, msg string) {
		logger.Debug("Mint progress", "stage", stage, "message", msg)
		if onProgress != nil {
			onProgress(Progress{Stage: stage, Message: msg})
		}
	}

	// 1. change address -> payment key hash
	report(StageResolvingAddress, "resolving wallet address")
	rawAddr, err := m.wallet.GetChangeAddress(ctx)
	if err != nil {
		return nil, Classify(err, CodeAddressUnresolved)
	}
	// 2-5. policy, asset name, TTL and metadata
	p, err := m.plan(ctx, rawAddr, meta, report)
	if err != nil {
		return nil, err
	}

	// 6-10. mint, output, selection, change, finalize
	report(StageSelectingInputs, "selecting inputs")
	utxoHexes, err := m.wallet.GetUtxos(ctx)
	if err != nil {
		return nil, Classify(err, CodeBuildFailed)
	}
	if len(utxoHexes) == 0 {
		return nil, newError(CodeInsufficientFunds, ledger.ErrInsufficientBalance)
	}
	utxos, err := ledger.DecodeUTxOs(utxoHexes)
	if err != nil {
		return nil, newError(CodeBuildFailed, err)
	}

	b := ledger.NewTxBuilder(m.protocolParams(ctx))
	if m.rnd != nil {
		b.WithRand(m.rnd)
	}
	if err := b.MintAsset(p.script, p.assetName, 1); err != nil {
		return nil, newError(CodeBuildFailed, err)
	}
	b.AddOutput(ledger.TxOut{
		Address: p.addr,
		Amount:  ledger.NewValue(m.cfg.OutputLovelace).WithAsset(p.policy, p.assetName, 1),
	}).
		SetTTL(p.ttl).
		SetMetadata(p.metadata).
		SetChangeAddress(p.addr).
		AddRequiredSigner(p.keyHash)

	tx, err := b.Build(utxos)
	if err != nil {
		return nil, Classify(err, CodeBuildFailed)
	}
	if err := verifyTTL(tx.BodyBytes, p.ttl); err != nil {
		return nil, err
	}

	// 11. partial signature: the wallet signs for its key only
	report(StageAwaitingSignature, "waiting for wallet signature")
	unsignedHex, err := tx.Hex()
	if err != nil {
		return nil, newError(CodeBuildFailed, err)
	}
	witnessHex, err := m.wallet.SignTx(ctx, unsignedHex, true)
	if err != nil {
		return nil, Classify(err, CodeSignFailed)
	}

	// 12. attach the policy script
	witness, err := ledger.MergeWitnessesHex(witnessHex, b.Scripts()...)
	if err != nil {
		return nil, newError(CodeSignFailed, err)
	}
	signed := tx.WithWitnesses(witness)
	signedBytes, err := signed.Bytes()
	if err != nil {
		return nil, newError(CodeBuildFailed, err)
	}
	final, err := ledger.DecodeTx(signedBytes)
	if err != nil {
		return nil, newError(CodeConstructionInvariant, err)
	}
	if err := verifyTTL(final.BodyBytes, p.ttl); err != nil {
		return nil, err
	}

	// 13. submit
	report(StageSubmitting, "submitting transaction")
	txHash, err := m.wallet.SubmitTx(ctx, hex.EncodeToString(signedBytes))
	if err != nil {
		return nil, Classify(err, CodeSubmissionFailed)
	}
	if local := tx.Hash().String(); txHash == "" {
		txHash = local
	} else if txHash != local {
		logger.Warn("Wallet reported a different tx hash", "wallet", txHash, "local", local)
	}

	res := &Result{
		PolicyID:  p.policy.String(),
		AssetName: p.assetName,
		TxHash:    txHash,
		Unit:      p.unit(),
		Owner:     p.addr.String(),
		TTL:       p.ttl,
		Fee:       tx.Body.Fee,
	}
	report(StageSubmitted, "transaction submitted")
	logger.Info("Identity NFT mint submitted",
		"tx_hash", res.TxHash,
		"policy_id", res.PolicyID,
		"asset_name", res.AssetName,
		"fee", res.Fee,
	)

	if err := m.emitter.EmitMinted(events.MintedEvent{
		Network:   string(m.cfg.Network),
		TxHash:    res.TxHash,
		PolicyID:  res.PolicyID,
		AssetName: res.AssetName,
		Unit:      res.Unit,
		Owner:     res.Owner,
		Image:     meta.Image,
	}); err != nil {
		logger.Warn("Publishing minted event failed", "tx_hash", res.TxHash, "error", err)
	}
	return res, nil
}

// verifyTTL decodes the serialized body and checks that the TTL survived
// encoding. A missing TTL would make the transaction valid forever.
func verifyTTL(body []byte, expected uint64) error {
	decoded, err := ledger.DecodeBody(body)
	if err != nil {
		return newError(CodeConstructionInvariant, err)
	}
	if decoded.TTL == 0 {
		return newError(CodeConstructionInvariant, fmt.Errorf("transaction body has no TTL"))
	}
	if decoded.TTL != expected {
		return newError(CodeConstructionInvariant, fmt.Errorf("TTL %d does not match computed %d", decoded.TTL, expected))
	}
	return nil
}
