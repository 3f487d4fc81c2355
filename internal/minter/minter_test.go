package minter

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/internal/slot"
	"github.com/fystack/identity-minter/internal/wallet"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/events"
)

var mintTime = time.Date(2025, 6, 1, 12, 0, 0, 123_000_000, time.UTC)

const fundingTx = "1f2e3d4c5b6a79880716253443526170819fa0b1c2d3e4f5061728394a5b6c7d"

// stubWallet is a CIP-30 wallet backed by a single ed25519 key.
type stubWallet struct {
	key     ed25519.PrivateKey
	addr    ledger.Address
	utxos   []string
	utxoErr error

	mu          sync.Mutex
	signCalls   int
	signPartial bool
	signErr     error
	signGate    chan struct{}

	submitted string
	submitErr error
}

func newStubWallet(t *testing.T, networkID byte, lovelace ...uint64) *stubWallet {
	t.Helper()
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))
	kh := ledger.Blake2b224(key.Public().(ed25519.PublicKey))
	w := &stubWallet{key: key, addr: ledger.NewEnterpriseAddress(networkID, kh)}

	txHash, err := ledger.ParseHash32(fundingTx)
	require.NoError(t, err)
	for i, l := range lovelace {
		u := ledger.UTxO{
			Input:  ledger.TxIn{TxHash: txHash, Index: uint32(i)},
			Output: ledger.TxOut{Address: w.addr, Amount: ledger.NewValue(l)},
		}
		h, err := u.Hex()
		require.NoError(t, err)
		w.utxos = append(w.utxos, h)
	}
	return w
}

func (w *stubWallet) GetNetworkID(context.Context) (int, error)  { return int(w.addr.NetworkID()), nil }
func (w *stubWallet) GetUtxos(context.Context) ([]string, error) { return w.utxos, w.utxoErr }
func (w *stubWallet) GetBalance(context.Context) (string, error) { return "8200a0", nil }
func (w *stubWallet) GetChangeAddress(context.Context) (string, error) {
	return w.addr.Hex(), nil
}

func (w *stubWallet) SignTx(ctx context.Context, txHex string, partial bool) (string, error) {
	w.mu.Lock()
	w.signCalls++
	w.signPartial = partial
	gate := w.signGate
	w.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if w.signErr != nil {
		return "", w.signErr
	}
	tx, err := ledger.DecodeTxHex(txHex)
	if err != nil {
		return "", err
	}
	ws, err := ledger.Marshal(ledger.WitnessSet{VKeys: []ledger.VKeyWitness{ledger.SignBody(w.key, tx.Hash())}})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ws), nil
}

func (w *stubWallet) SubmitTx(_ context.Context, txHex string) (string, error) {
	if w.submitErr != nil {
		return "", w.submitErr
	}
	w.submitted = txHex
	tx, err := ledger.DecodeTxHex(txHex)
	if err != nil {
		return "", err
	}
	return tx.Hash().String(), nil
}

func (w *stubWallet) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.signCalls
}

type fixedSlot struct{ slot uint64 }

func (f fixedSlot) CurrentSlot(context.Context) (uint64, error) { return f.slot, nil }

func previewClock(t *testing.T) *slot.WallClock {
	t.Helper()
	preset, ok := config.Preset(enum.NetworkPreview)
	require.True(t, ok)
	return &slot.WallClock{Timing: preset.Slot, Now: func() time.Time { return mintTime }}
}

func testMetadata(t *testing.T) identity.Metadata {
	t.Helper()
	m, err := identity.NewMetadata("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", enum.PrivacySelective, identity.Options{
		AuthorizedAddresses: []string{"addr_test1vz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzerspjrlsz"},
		Now:                 func() time.Time { return mintTime },
	})
	require.NoError(t, err)
	return m
}

type captureEmitter struct{ events []events.MintedEvent }

func (c *captureEmitter) EmitMinted(e events.MintedEvent) error {
	c.events = append(c.events, e)
	return nil
}
func (c *captureEmitter) Close() {}

func newTestMinter(w wallet.API, src slot.Source, opts ...Option) *Minter {
	opts = append([]Option{WithClock(func() time.Time { return mintTime })}, opts...)
	return New(w, src, DefaultConfig(enum.NetworkPreview), opts...)
}

func TestMint_Success(t *testing.T) {
	w := newStubWallet(t, 0, 10_000_000)
	clock := previewClock(t)
	emitter := &captureEmitter{}
	m := newTestMinter(w, clock, WithEmitter(emitter))

	var stages []Stage
	res, err := m.Mint(context.Background(), testMetadata(t), func(p Progress) { stages = append(stages, p.Stage) })
	require.NoError(t, err)

	assert.Equal(t, "CardanoIdentity1748779200123", res.AssetName)
	assert.Equal(t, res.PolicyID+hex.EncodeToString([]byte(res.AssetName)), res.Unit)
	assert.Equal(t, w.addr.String(), res.Owner)
	assert.True(t, w.signPartial)

	expectedSlot, err := slot.Estimate(mintTime, clock.Timing)
	require.NoError(t, err)
	assert.NotZero(t, res.TTL)
	assert.Equal(t, expectedSlot+7200, res.TTL)

	assert.Equal(t, []Stage{
		StageResolvingAddress, StageBuildingPolicy, StageEstimatingSlot, StageBuildingMetadata,
		StageSelectingInputs, StageAwaitingSignature, StageSubmitting, StageSubmitted,
	}, stages)

	// submitted transaction
	tx, err := ledger.DecodeTxHex(w.submitted)
	require.NoError(t, err)
	assert.Equal(t, res.TxHash, tx.Hash().String())
	assert.Equal(t, res.TTL, tx.Body.TTL)
	assert.Equal(t, res.Fee, tx.Body.Fee)

	policy, err := ledger.ParseHash28(res.PolicyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tx.Body.Mint[policy][res.AssetName])
	require.Len(t, tx.Body.RequiredSigners, 1)
	signerPolicy, err := ledger.NewPubkeyScript(tx.Body.RequiredSigners[0]).Hash()
	require.NoError(t, err)
	assert.Equal(t, policy, signerPolicy)

	out := tx.Body.Outputs[0]
	assert.Equal(t, uint64(2_000_000), out.Amount.Coin)
	assert.Equal(t, uint64(1), out.Amount.Quantity(ledger.AssetID{Policy: policy, Name: res.AssetName}))

	ws, err := ledger.DecodeWitnessSet(tx.WitnessBytes)
	require.NoError(t, err)
	require.Len(t, ws.VKeys, 1)
	assert.True(t, ws.VKeys[0].Verify(tx.Hash()))
	require.Len(t, ws.NativeScripts, 1)
	scriptHash, err := ws.NativeScripts[0].Hash()
	require.NoError(t, err)
	assert.Equal(t, policy, scriptHash)

	// label 721 metadata with stringified values
	require.NotEmpty(t, tx.AuxBytes)
	var aux map[uint64]map[string]map[string]map[string]any
	require.NoError(t, cbor.Unmarshal(tx.AuxBytes, &aux))
	asset := aux[721][res.PolicyID][res.AssetName]
	require.NotNil(t, asset)
	assert.Equal(t, "Cardano Identity", asset["name"])
	assert.Equal(t, "image/jpeg", asset["mediaType"])
	props, ok := asset["properties"].(map[any]any)
	require.True(t, ok)
	assert.Equal(t, "false", props["encrypted"])
	assert.Equal(t, "1748779200123", props["timestamp"])
	assert.Equal(t, "selective", props["privacy"])

	require.Len(t, emitter.events, 1)
	assert.Equal(t, res.TxHash, emitter.events[0].TxHash)
	assert.Equal(t, res.Unit, emitter.events[0].Unit)
	assert.Equal(t, "preview", emitter.events[0].Network)
}

func TestMint_UserRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"cip30 declined", &wallet.TxSignError{Code: wallet.TxSignUserDeclined, Info: "user closed popup"}},
		{"legacy message", errors.New("User rejected the request")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newStubWallet(t, 0, 10_000_000)
			w.signErr = tt.err
			_, err := newTestMinter(w, previewClock(t)).Mint(context.Background(), testMetadata(t), nil)

			require.Error(t, err)
			assert.Equal(t, CodeUserRejected, CodeOf(err))
			assert.ErrorIs(t, err, ErrUserRejected)
			assert.Empty(t, w.submitted)
		})
	}
}

func TestMint_NoUTxOs(t *testing.T) {
	w := newStubWallet(t, 0)
	_, err := newTestMinter(w, previewClock(t)).Mint(context.Background(), testMetadata(t), nil)

	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
	assert.Zero(t, w.calls())
}

func TestMint_InsufficientFunds(t *testing.T) {
	w := newStubWallet(t, 0, 1_000_000, 500_000)
	_, err := newTestMinter(w, previewClock(t)).Mint(context.Background(), testMetadata(t), nil)

	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Zero(t, w.calls())
}

func TestMint_AddressUnresolved(t *testing.T) {
	t.Run("script address", func(t *testing.T) {
		w := newStubWallet(t, 0, 10_000_000)
		addr, err := ledger.ParseAddress("addr1w8phkx6acpnf78fuvxn0mkew3l0fd058hzquvz7w36x4gtcyjy7wx")
		require.NoError(t, err)
		w.addr = addr

		m := New(w, previewClock(t), DefaultConfig(enum.NetworkMainnet))
		_, err = m.Mint(context.Background(), testMetadata(t), nil)
		assert.Equal(t, CodeAddressUnresolved, CodeOf(err))
		assert.ErrorIs(t, err, ledger.ErrUnsupportedAddress)
	})

	t.Run("wrong network", func(t *testing.T) {
		w := newStubWallet(t, 1, 10_000_000)
		_, err := newTestMinter(w, previewClock(t)).Mint(context.Background(), testMetadata(t), nil)
		assert.Equal(t, CodeAddressUnresolved, CodeOf(err))
		assert.ErrorIs(t, err, wallet.ErrNetworkMismatch)
		assert.Zero(t, w.calls())
	})
}

func TestMint_NotConnected(t *testing.T) {
	_, err := New(nil, fixedSlot{slot: 1}, DefaultConfig(enum.NetworkPreview)).Mint(context.Background(), testMetadata(t), nil)
	assert.Equal(t, CodeWalletNotConnected, CodeOf(err))
}

func TestMint_ZeroTTLNeverReachesWallet(t *testing.T) {
	w := newStubWallet(t, 0, 10_000_000)
	cfg := DefaultConfig(enum.NetworkPreview)
	cfg.TTLBufferSlots = 0

	_, err := New(w, fixedSlot{slot: 0}, cfg).Mint(context.Background(), testMetadata(t), nil)
	assert.Equal(t, CodeConstructionInvariant, CodeOf(err))
	assert.Zero(t, w.calls())
}

func TestMint_SubmissionErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode Code
	}{
		{
			"collateral",
			&wallet.TxSendError{Code: wallet.TxSendRefused, Info: "NoCollateralInputs"},
			CodeMissingCollateral,
		},
		{
			"balance",
			&wallet.TxSendError{Code: wallet.TxSendRefused, Info: "UTxO Balance Insufficient"},
			CodeInsufficientFunds,
		},
		{
			"generic",
			&wallet.TxSendError{Code: wallet.TxSendFailure, Info: "BadInputsUTxO"},
			CodeSubmissionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newStubWallet(t, 0, 10_000_000)
			w.submitErr = tt.err
			_, err := newTestMinter(w, previewClock(t)).Mint(context.Background(), testMetadata(t), nil)

			var me *Error
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.wantCode, me.Code)
			var sendErr *wallet.TxSendError
			require.ErrorAs(t, err, &sendErr)
			assert.Equal(t, sendErr.Info, me.Info)
			assert.Equal(t, int(sendErr.Code), me.RawCode)
		})
	}
}

func TestMint_InProgressGuard(t *testing.T) {
	w := newStubWallet(t, 0, 10_000_000)
	w.signGate = make(chan struct{})
	m := newTestMinter(w, previewClock(t))
	meta := testMetadata(t)

	done := make(chan error, 1)
	go func() {
		_, err := m.Mint(context.Background(), meta, nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return w.calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := m.Mint(context.Background(), meta, nil)
	assert.Equal(t, CodeMintInProgress, CodeOf(err))

	close(w.signGate)
	require.NoError(t, <-done)

	w.signGate = nil
	_, err = m.Mint(context.Background(), meta, nil)
	assert.NoError(t, err)
}

type stubParams struct {
	pp  *cardano.ProtocolParams
	err error
}

func (s stubParams) GetProtocolParameters(context.Context) (*cardano.ProtocolParams, error) {
	return s.pp, s.err
}

func TestMint_FetchedProtocolParams(t *testing.T) {
	w := newStubWallet(t, 0, 10_000_000)
	res, err := newTestMinter(w, previewClock(t),
		WithParamsSource(stubParams{pp: &cardano.ProtocolParams{MinFeeA: 44, MinFeeB: 255381}}),
	).Mint(context.Background(), testMetadata(t), nil)
	require.NoError(t, err)
	assert.Greater(t, res.Fee, uint64(255381))

	w = newStubWallet(t, 0, 10_000_000)
	_, err = newTestMinter(w, previewClock(t), WithParamsSource(stubParams{err: errors.New("down")})).
		Mint(context.Background(), testMetadata(t), nil)
	assert.NoError(t, err)
}

func TestPrepare(t *testing.T) {
	w := newStubWallet(t, 0)
	m := newTestMinter(nil, fixedSlot{slot: 1000})

	p, err := m.Prepare(context.Background(), w.addr.String(), testMetadata(t))
	require.NoError(t, err)
	assert.Equal(t, "CardanoIdentity1748779200123", p.AssetName)
	assert.Equal(t, hex.EncodeToString([]byte(p.AssetName)), p.AssetNameHex)
	assert.True(t, strings.HasPrefix(p.Unit, p.PolicyID))
	assert.Equal(t, uint64(1000), p.CurrentSlot)
	assert.Equal(t, uint64(8200), p.TTL)
	assert.True(t, mintTime.Add(2*time.Hour).Equal(p.LockTime))
	assert.Contains(t, p.Metadata, p.PolicyID)
	assert.Zero(t, w.calls())

	_, err = m.Prepare(context.Background(), "not-an-address", testMetadata(t))
	assert.Equal(t, CodeAddressUnresolved, CodeOf(err))
}

func TestAssetName(t *testing.T) {
	assert.Equal(t, "CardanoIdentity1748779200123", AssetName("CardanoIdentity", mintTime))
}
