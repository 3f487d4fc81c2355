package ledger

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fystack/identity-minter/pkg/common/logger"
)

const maxBuildIterations = 10

var (
	ErrNoChangeAddress = errors.New("change address not set")
	ErrTxTooLarge      = errors.New("transaction exceeds max size")
	ErrValueTooLarge   = errors.New("output value exceeds max value size")
)

// TxBuilder assembles a balanced transaction: outputs are raised to the
// minimum ada, inputs come from random-improve selection, leftover value goes
// to a change output and the fee is iterated until it covers the signed size.
type TxBuilder struct {
	params     ProtocolParams
	outputs    []TxOut
	mint       Mint
	scripts    []NativeScript
	metadata   Metadata
	ttl        uint64
	changeAddr Address
	signers    []Hash28
	rnd        *rand.Rand
}

func NewTxBuilder(params ProtocolParams) *TxBuilder {
	seed := uint64(time.Now().UnixNano())
	return &TxBuilder{
		params: params,
		rnd:    rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// WithRand fixes the selection randomness.
func (b *TxBuilder) WithRand(r *rand.Rand) *TxBuilder {
	b.rnd = r
	return b
}

func (b *TxBuilder) AddOutput(out TxOut) *TxBuilder {
	b.outputs = append(b.outputs, out)
	return b
}

// MintAsset adds qty of name under script and attaches the script as a witness.
func (b *TxBuilder) MintAsset(script NativeScript, name string, qty int64) error {
	if len(name) > 32 {
		return fmt.Errorf("asset name %q exceeds 32 bytes", name)
	}
	policy, err := script.Hash()
	if err != nil {
		return err
	}
	if b.mint == nil {
		b.mint = Mint{}
	}
	if b.mint[policy] == nil {
		b.mint[policy] = map[string]int64{}
		b.scripts = append(b.scripts, script)
	}
	b.mint[policy][name] += qty
	return nil
}

func (b *TxBuilder) SetTTL(slot uint64) *TxBuilder {
	b.ttl = slot
	return b
}

func (b *TxBuilder) SetMetadata(m Metadata) *TxBuilder {
	b.metadata = m
	return b
}

func (b *TxBuilder) SetChangeAddress(a Address) *TxBuilder {
	b.changeAddr = a
	return b
}

// AddRequiredSigner lists kh in the body's required signers, so the wallet
// signs with it and the fee pays for its witness.
func (b *TxBuilder) AddRequiredSigner(kh Hash28) *TxBuilder {
	for _, s := range b.signers {
		if s == kh {
			return b
		}
	}
	b.signers = append(b.signers, kh)
	return b
}

// Scripts returns the native scripts the final witness set must carry.
func (b *TxBuilder) Scripts() []NativeScript {
	return append([]NativeScript(nil), b.scripts...)
}

func (b *TxBuilder) Build(available []UTxO) (*Tx, error) {
	if len(b.changeAddr) == 0 {
		return nil, ErrNoChangeAddress
	}
	if len(available) == 0 {
		return nil, ErrInsufficientBalance
	}

	outputs, outTotal, err := b.prepareOutputs()
	if err != nil {
		return nil, err
	}

	var aux []byte
	var auxHash *Hash32
	if len(b.metadata) > 0 {
		if aux, err = b.metadata.Bytes(); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		h := Blake2b256(aux)
		auxHash = &h
	}

	minted := b.mint.Minted()
	fee := b.params.MinFeeB
	var extra uint64

	for i := 0; i < maxBuildIterations; i++ {
		need, err := outTotal.Add(NewValue(fee + extra))
		if err != nil {
			return nil, err
		}
		sel, err := SelectRandomImprove(available, subClip(need, minted), b.rnd)
		if err != nil {
			return nil, err
		}

		inTotal, err := sel.Total.Add(minted)
		if err != nil {
			return nil, err
		}
		spent, err := outTotal.Add(NewValue(fee))
		if err != nil {
			return nil, err
		}
		leftover, err := inTotal.Sub(spent)
		if err != nil {
			return nil, err
		}

		bodyOutputs := append([]TxOut(nil), outputs...)
		bodyFee := fee
		if !leftover.IsZero() {
			change := TxOut{Address: b.changeAddr, Amount: leftover}
			minChange, err := b.params.MinUTxO(change)
			if err != nil {
				return nil, err
			}
			switch {
			case leftover.Coin >= minChange:
				bodyOutputs = append(bodyOutputs, change)
			case !leftover.HasAssets():
				bodyFee += leftover.Coin
			default:
				// change holds tokens but not enough ada to carry them
				extra += minChange - leftover.Coin
				continue
			}
		}

		inputs := make([]TxIn, len(sel.Inputs))
		for j, u := range sel.Inputs {
			inputs[j] = u.Input
		}
		body := TxBody{
			Inputs:      inputs,
			Outputs:     bodyOutputs,
			Fee:         bodyFee,
			TTL:         b.ttl,
			AuxDataHash: auxHash,
			Mint:        b.mint,
		}
		if len(b.signers) > 0 {
			body.RequiredSigners = append([]Hash28(nil), b.signers...)
		}
		tx, err := NewTx(body, aux)
		if err != nil {
			return nil, err
		}
		size, err := b.signedSize(tx, b.witnessCount(sel.Inputs))
		if err != nil {
			return nil, err
		}
		required := b.params.MinFee(size)
		if bodyFee >= required {
			if b.params.MaxTxSize > 0 && uint64(size) > b.params.MaxTxSize {
				return nil, fmt.Errorf("%w: %d > %d", ErrTxTooLarge, size, b.params.MaxTxSize)
			}
			logger.Debug("Transaction built",
				"inputs", len(inputs),
				"outputs", len(bodyOutputs),
				"fee", bodyFee,
				"size", size,
				"witnesses", b.witnessCount(sel.Inputs),
				"iterations", i+1,
			)
			return tx, nil
		}
		fee = required
	}
	return nil, fmt.Errorf("fee did not converge after %d iterations", maxBuildIterations)
}

func (b *TxBuilder) prepareOutputs() ([]TxOut, Value, error) {
	outputs := make([]TxOut, len(b.outputs))
	var total Value
	for i, out := range b.outputs {
		out.Amount = out.Amount.Clone()
		minCoin, err := b.params.MinUTxO(out)
		if err != nil {
			return nil, Value{}, err
		}
		if out.Amount.Coin < minCoin {
			out.Amount.Coin = minCoin
		}
		if b.params.MaxValueSize > 0 {
			size, err := ValueSize(out.Amount)
			if err != nil {
				return nil, Value{}, err
			}
			if uint64(size) > b.params.MaxValueSize {
				return nil, Value{}, fmt.Errorf("%w: output %d", ErrValueTooLarge, i)
			}
		}
		outputs[i] = out
		if total, err = total.Add(out.Amount); err != nil {
			return nil, Value{}, err
		}
	}
	return outputs, total, nil
}

// witnessCount is the number of distinct keys that will sign: the payment
// keys of the spent inputs plus the required signers.
func (b *TxBuilder) witnessCount(inputs []UTxO) int {
	keys := make(map[Hash28]struct{}, len(inputs)+len(b.signers))
	for _, kh := range b.signers {
		keys[kh] = struct{}{}
	}
	for _, u := range inputs {
		if kh, err := u.Output.Address.PaymentKeyHash(); err == nil {
			keys[kh] = struct{}{}
		}
	}
	return max(len(keys), 1)
}

func (b *TxBuilder) signedSize(tx *Tx, witnesses int) (int, error) {
	fake, err := fakeWitnessSet(witnesses, b.scripts)
	if err != nil {
		return 0, err
	}
	raw, err := tx.WithWitnesses(fake).Bytes()
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// subClip returns v - o with every component floored at zero.
func subClip(v, o Value) Value {
	out := v.Clone()
	if out.Coin > o.Coin {
		out.Coin -= o.Coin
	} else {
		out.Coin = 0
	}
	for _, id := range o.AssetIDs() {
		cur, sub := out.Quantity(id), o.Quantity(id)
		if cur > sub {
			out.setAsset(id.Policy, id.Name, cur-sub)
		} else {
			out.setAsset(id.Policy, id.Name, 0)
		}
	}
	return out
}
