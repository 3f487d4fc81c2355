package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/retry"
)

const (
	KeyWalletName = "key"
	unitLovelace  = "lovelace"
)

// Chain is the indexer access a key wallet needs.
type Chain interface {
	GetAddressUTxOs(ctx context.Context, address string) ([]cardano.UTxO, error)
	SubmitTx(ctx context.Context, txCBOR []byte) (string, error)
}

// KeyWallet implements API with a single ed25519 payment key and an
// enterprise address, reading chain state through an indexer.
type KeyWallet struct {
	key       ed25519.PrivateKey
	keyHash   ledger.Hash28
	address   ledger.Address
	networkID int
	chain     Chain
	approver  Approver
	retry     retry.ExponentialConfig
}

var (
	_ API       = (*KeyWallet)(nil)
	_ Extension = (*KeyWallet)(nil)
)

func NewKeyWallet(key ed25519.PrivateKey, network enum.Network, chain Chain, approver Approver) *KeyWallet {
	if approver == nil {
		approver = AutoApprove()
	}
	kh := ledger.Blake2b224(key.Public().(ed25519.PublicKey))
	return &KeyWallet{
		key:       key,
		keyHash:   kh,
		address:   ledger.NewEnterpriseAddress(byte(network.ID()), kh),
		networkID: network.ID(),
		chain:     chain,
		approver:  approver,
		retry: retry.ExponentialConfig{
			InitialInterval: retry.DefaultInterval,
			MaxInterval:     5 * time.Second,
			MaxRetries:      retry.DefaultMaxAttempts,
		},
	}
}

// WithRetry replaces the backoff used for indexer reads.
func (w *KeyWallet) WithRetry(cfg retry.ExponentialConfig) *KeyWallet {
	w.retry = cfg
	return w
}

func (w *KeyWallet) Address() ledger.Address { return w.address }

func (w *KeyWallet) KeyHash() ledger.Hash28 { return w.keyHash }

func (w *KeyWallet) Name() string { return KeyWalletName }

func (w *KeyWallet) Enable(context.Context) (API, error) { return w, nil }

func (w *KeyWallet) GetNetworkID(context.Context) (int, error) { return w.networkID, nil }

func (w *KeyWallet) GetChangeAddress(context.Context) (string, error) {
	return w.address.Hex(), nil
}

func (w *KeyWallet) GetUtxos(ctx context.Context) ([]string, error) {
	utxos, err := w.utxos(ctx)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(utxos))
	for _, u := range utxos {
		h, err := u.Hex()
		if err != nil {
			return nil, &APIError{Code: APIErrorInternal, Info: err.Error()}
		}
		out = append(out, h)
	}
	return out, nil
}

func (w *KeyWallet) GetBalance(ctx context.Context) (string, error) {
	utxos, err := w.utxos(ctx)
	if err != nil {
		return "", err
	}
	total, err := ledger.SumValues(utxos)
	if err != nil {
		return "", &APIError{Code: APIErrorInternal, Info: err.Error()}
	}
	b, err := total.BalanceCBOR()
	if err != nil {
		return "", &APIError{Code: APIErrorInternal, Info: err.Error()}
	}
	return hex.EncodeToString(b), nil
}

// SignTx asks the approver, then returns a witness set holding one vkey
// witness over the transaction id.
func (w *KeyWallet) SignTx(ctx context.Context, txHex string, partial bool) (string, error) {
	tx, err := ledger.DecodeTxHex(txHex)
	if err != nil {
		return "", &APIError{Code: APIErrorInvalidRequest, Info: err.Error()}
	}
	txHash := tx.Hash()

	req := SignRequest{
		TxHash:  txHash.String(),
		Fee:     tx.Body.Fee,
		Outputs: len(tx.Body.Outputs),
		Mint:    map[string]int64{},
		Partial: partial,
	}
	for policy, names := range tx.Body.Mint {
		for name, qty := range names {
			req.Mint[ledger.AssetID{Policy: policy, Name: name}.Unit()] = qty
		}
	}

	ok, err := w.approver.Approve(ctx, req)
	if err != nil {
		return "", &TxSignError{Code: TxSignProofGeneration, Info: err.Error()}
	}
	if !ok {
		logger.Info("Signature declined", "tx_hash", req.TxHash)
		return "", &TxSignError{Code: TxSignUserDeclined, Info: "signature request declined"}
	}

	ws, err := ledger.Marshal(ledger.WitnessSet{
		VKeys: []ledger.VKeyWitness{ledger.SignBody(w.key, txHash)},
	})
	if err != nil {
		return "", &TxSignError{Code: TxSignProofGeneration, Info: err.Error()}
	}
	logger.Debug("Transaction signed", "tx_hash", req.TxHash, "partial", partial)
	return hex.EncodeToString(ws), nil
}

// SubmitTx sends the signed transaction through the indexer. Submission is
// not retried.
func (w *KeyWallet) SubmitTx(ctx context.Context, txHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(txHex, "0x"))
	if err != nil {
		return "", &APIError{Code: APIErrorInvalidRequest, Info: err.Error()}
	}
	hash, err := w.chain.SubmitTx(ctx, raw)
	if err != nil {
		code := TxSendFailure
		if status := rpc.StatusCode(err); status >= 400 && status < 500 {
			code = TxSendRefused
		}
		return "", &TxSendError{Code: code, Info: err.Error(), Err: err}
	}
	return hash, nil
}

func (w *KeyWallet) utxos(ctx context.Context) ([]ledger.UTxO, error) {
	var listed []cardano.UTxO
	err := retry.Exponential(ctx, func() error {
		var err error
		listed, err = w.chain.GetAddressUTxOs(ctx, w.address.String())
		if rpc.IsUnauthorized(err) {
			return retry.Permanent(err)
		}
		return err
	}, w.retry)
	if err != nil {
		return nil, fmt.Errorf("list utxos: %w", err)
	}

	out := make([]ledger.UTxO, 0, len(listed))
	for _, u := range listed {
		lu, err := toLedgerUTxO(u)
		if err != nil {
			return nil, &APIError{Code: APIErrorInternal, Info: fmt.Sprintf("utxo %s#%d: %v", u.TxHash, u.OutputIndex, err)}
		}
		out = append(out, lu)
	}
	return out, nil
}

func toLedgerUTxO(u cardano.UTxO) (ledger.UTxO, error) {
	txHash, err := ledger.ParseHash32(u.TxHash)
	if err != nil {
		return ledger.UTxO{}, err
	}
	addr, err := ledger.ParseAddress(u.Address)
	if err != nil {
		return ledger.UTxO{}, err
	}

	var value ledger.Value
	for _, a := range u.Amount {
		qty, err := strconv.ParseUint(a.Quantity, 10, 64)
		if err != nil {
			return ledger.UTxO{}, fmt.Errorf("quantity of %s: %w", a.Unit, err)
		}
		if a.Unit == unitLovelace {
			value.Coin += qty
			continue
		}
		if len(a.Unit) < 2*ledger.Hash28Size {
			return ledger.UTxO{}, errors.New("malformed unit " + a.Unit)
		}
		policy, err := ledger.ParseHash28(a.Unit[:2*ledger.Hash28Size])
		if err != nil {
			return ledger.UTxO{}, err
		}
		name, err := hex.DecodeString(a.Unit[2*ledger.Hash28Size:])
		if err != nil {
			return ledger.UTxO{}, fmt.Errorf("asset name of %s: %w", a.Unit, err)
		}
		value = value.WithAsset(policy, string(name), qty)
	}

	return ledger.UTxO{
		Input:  ledger.TxIn{TxHash: txHash, Index: u.OutputIndex},
		Output: ledger.TxOut{Address: addr, Amount: value},
	}, nil
}
