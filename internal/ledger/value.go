package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// MultiAsset maps policy id to asset name (raw bytes held in a string) to quantity.
type MultiAsset map[Hash28]map[string]uint64

// Value is a coin amount plus optional native assets.
type Value struct {
	Coin   uint64
	Assets MultiAsset
}

// AssetID names one asset class.
type AssetID struct {
	Policy Hash28
	Name   string
}

// Unit is policy id hex followed by asset name hex.
func (a AssetID) Unit() string {
	return a.Policy.String() + hex.EncodeToString([]byte(a.Name))
}

func NewValue(coin uint64) Value { return Value{Coin: coin} }

func (v Value) Clone() Value {
	out := Value{Coin: v.Coin}
	for p, names := range v.Assets {
		for n, q := range names {
			out.setAsset(p, n, q)
		}
	}
	return out
}

func (v *Value) setAsset(policy Hash28, name string, qty uint64) {
	if qty == 0 {
		if names, ok := v.Assets[policy]; ok {
			delete(names, name)
			if len(names) == 0 {
				delete(v.Assets, policy)
			}
		}
		return
	}
	if v.Assets == nil {
		v.Assets = MultiAsset{}
	}
	if v.Assets[policy] == nil {
		v.Assets[policy] = map[string]uint64{}
	}
	v.Assets[policy][name] = qty
}

// WithAsset returns a copy of v holding qty of the given asset.
func (v Value) WithAsset(policy Hash28, name string, qty uint64) Value {
	out := v.Clone()
	out.setAsset(policy, name, qty)
	return out
}

func (v Value) Quantity(id AssetID) uint64 {
	return v.Assets[id.Policy][id.Name]
}

// AssetIDs lists the asset classes in v in a stable order.
func (v Value) AssetIDs() []AssetID {
	var ids []AssetID
	for p, names := range v.Assets {
		for n := range names {
			ids = append(ids, AssetID{Policy: p, Name: n})
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Policy != ids[j].Policy {
			return string(ids[i].Policy[:]) < string(ids[j].Policy[:])
		}
		return ids[i].Name < ids[j].Name
	})
	return ids
}

func (v Value) HasAssets() bool { return len(v.Assets) > 0 }

func (v Value) IsZero() bool { return v.Coin == 0 && !v.HasAssets() }

var ErrValueOverflow = errors.New("value overflow")

func (v Value) Add(o Value) (Value, error) {
	out := v.Clone()
	if out.Coin > math.MaxUint64-o.Coin {
		return Value{}, ErrValueOverflow
	}
	out.Coin += o.Coin
	for _, id := range o.AssetIDs() {
		cur, add := out.Quantity(id), o.Quantity(id)
		if cur > math.MaxUint64-add {
			return Value{}, ErrValueOverflow
		}
		out.setAsset(id.Policy, id.Name, cur+add)
	}
	return out, nil
}

// Sub returns v - o, failing when any component would go negative.
func (v Value) Sub(o Value) (Value, error) {
	if !v.Covers(o) {
		return Value{}, fmt.Errorf("%w: cannot subtract", ErrInsufficientBalance)
	}
	out := v.Clone()
	out.Coin -= o.Coin
	for _, id := range o.AssetIDs() {
		out.setAsset(id.Policy, id.Name, out.Quantity(id)-o.Quantity(id))
	}
	return out, nil
}

// Covers reports whether every component of v is at least that of o.
func (v Value) Covers(o Value) bool {
	if v.Coin < o.Coin {
		return false
	}
	for _, id := range o.AssetIDs() {
		if v.Quantity(id) < o.Quantity(id) {
			return false
		}
	}
	return true
}

func (m MultiAsset) toCBOR() map[cbor.ByteString]map[cbor.ByteString]uint64 {
	out := make(map[cbor.ByteString]map[cbor.ByteString]uint64, len(m))
	for p, names := range m {
		inner := make(map[cbor.ByteString]uint64, len(names))
		for n, q := range names {
			inner[cbor.ByteString(n)] = q
		}
		out[cbor.ByteString(p[:])] = inner
	}
	return out
}

func multiAssetFromCBOR(in map[cbor.ByteString]map[cbor.ByteString]uint64) (MultiAsset, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(MultiAsset, len(in))
	for p, names := range in {
		if len(p) != Hash28Size {
			return nil, fmt.Errorf("policy id must be %d bytes, got %d", Hash28Size, len(p))
		}
		var policy Hash28
		copy(policy[:], p)
		for n, q := range names {
			if len(n) > 32 {
				return nil, fmt.Errorf("asset name longer than 32 bytes")
			}
			if q == 0 {
				continue
			}
			if out[policy] == nil {
				out[policy] = map[string]uint64{}
			}
			out[policy][string(n)] = q
		}
	}
	return out, nil
}

type valueArray struct {
	_      struct{} `cbor:",toarray"`
	Coin   uint64
	Assets map[cbor.ByteString]map[cbor.ByteString]uint64
}

// MarshalCBOR encodes a bare coin as an unsigned integer and anything with
// assets as [coin, multiasset].
func (v Value) MarshalCBOR() ([]byte, error) {
	if !v.HasAssets() {
		return encMode.Marshal(v.Coin)
	}
	return encMode.Marshal(valueArray{Coin: v.Coin, Assets: v.Assets.toCBOR()})
}

// BalanceCBOR encodes v as [coin, multiasset] even when it holds no assets,
// the shape wallets return from getBalance.
func (v Value) BalanceCBOR() ([]byte, error) {
	return encMode.Marshal(valueArray{Coin: v.Coin, Assets: v.Assets.toCBOR()})
}

func (v *Value) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty value")
	}
	switch majorType(data[0]) {
	case majorUint:
		*v = Value{}
		return cbor.Unmarshal(data, &v.Coin)
	case majorArray:
		var arr valueArray
		if err := cbor.Unmarshal(data, &arr); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		assets, err := multiAssetFromCBOR(arr.Assets)
		if err != nil {
			return err
		}
		*v = Value{Coin: arr.Coin, Assets: assets}
		return nil
	default:
		return fmt.Errorf("unexpected value major type %d", majorType(data[0]))
	}
}

// Mint is the mint field of a transaction body: signed quantities per asset.
type Mint map[Hash28]map[string]int64

func (m Mint) MarshalCBOR() ([]byte, error) {
	out := make(map[cbor.ByteString]map[cbor.ByteString]int64, len(m))
	for p, names := range m {
		inner := make(map[cbor.ByteString]int64, len(names))
		for n, q := range names {
			inner[cbor.ByteString(n)] = q
		}
		out[cbor.ByteString(p[:])] = inner
	}
	return encMode.Marshal(out)
}

func (m *Mint) UnmarshalCBOR(data []byte) error {
	var in map[cbor.ByteString]map[cbor.ByteString]int64
	if err := cbor.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode mint: %w", err)
	}
	out := make(Mint, len(in))
	for p, names := range in {
		if len(p) != Hash28Size {
			return fmt.Errorf("policy id must be %d bytes, got %d", Hash28Size, len(p))
		}
		var policy Hash28
		copy(policy[:], p)
		out[policy] = map[string]int64{}
		for n, q := range names {
			out[policy][string(n)] = q
		}
	}
	*m = out
	return nil
}

// Minted returns the positive part of m as a Value (burns are ignored).
func (m Mint) Minted() Value {
	var v Value
	for p, names := range m {
		for n, q := range names {
			if q > 0 {
				v.setAsset(p, n, uint64(q))
			}
		}
	}
	return v
}
