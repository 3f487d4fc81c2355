package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// TxIn references an output of an earlier transaction.
type TxIn struct {
	_      struct{} `cbor:",toarray"`
	TxHash Hash32
	Index  uint32
}

func (in TxIn) String() string { return fmt.Sprintf("%s#%d", in.TxHash, in.Index) }

func (in TxIn) less(o TxIn) bool {
	if in.TxHash != o.TxHash {
		return string(in.TxHash[:]) < string(o.TxHash[:])
	}
	return in.Index < o.Index
}

// TxOut is a transaction output. Datums and reference scripts of spent outputs
// are not needed for coin selection and are dropped on decode.
type TxOut struct {
	Address Address
	Amount  Value
}

type txOutArray struct {
	_       struct{} `cbor:",toarray"`
	Address []byte
	Amount  Value
}

// MarshalCBOR uses the legacy [address, value] shape, accepted in every era.
func (o TxOut) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(txOutArray{Address: o.Address, Amount: o.Amount})
}

// UnmarshalCBOR reads both the legacy array and the post-Alonzo map shape.
func (o *TxOut) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty output")
	}
	switch majorType(data[0]) {
	case majorArray:
		var fields []cbor.RawMessage
		if err := cbor.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode output: %w", err)
		}
		if len(fields) < 2 {
			return fmt.Errorf("output has %d fields", len(fields))
		}
		return o.fill(fields[0], fields[1])
	case majorMap:
		var fields map[uint64]cbor.RawMessage
		if err := cbor.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode output: %w", err)
		}
		addr, ok := fields[0]
		if !ok {
			return errors.New("output missing address")
		}
		amount, ok := fields[1]
		if !ok {
			return errors.New("output missing value")
		}
		return o.fill(addr, amount)
	default:
		return fmt.Errorf("unexpected output major type %d", majorType(data[0]))
	}
}

func (o *TxOut) fill(rawAddr, rawValue cbor.RawMessage) error {
	var addr []byte
	if err := cbor.Unmarshal(rawAddr, &addr); err != nil {
		return fmt.Errorf("decode output address: %w", err)
	}
	var v Value
	if err := cbor.Unmarshal(rawValue, &v); err != nil {
		return err
	}
	o.Address, o.Amount = addr, v
	return nil
}

// UTxO pairs an input reference with the output it points at.
type UTxO struct {
	_      struct{} `cbor:",toarray"`
	Input  TxIn
	Output TxOut
}

// DecodeUTxO parses one entry of a CIP-30 getUtxos response.
func DecodeUTxO(hexStr string) (UTxO, error) {
	var u UTxO
	raw, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return u, fmt.Errorf("decode utxo hex: %w", err)
	}
	if err := cbor.Unmarshal(raw, &u); err != nil {
		return u, fmt.Errorf("decode utxo: %w", err)
	}
	return u, nil
}

// DecodeUTxOs parses a full getUtxos response.
func DecodeUTxOs(hexes []string) ([]UTxO, error) {
	out := make([]UTxO, 0, len(hexes))
	for i, h := range hexes {
		u, err := DecodeUTxO(h)
		if err != nil {
			return nil, fmt.Errorf("utxo %d: %w", i, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Hex encodes u in the CIP-30 getUtxos form.
func (u UTxO) Hex() (string, error) {
	b, err := encMode.Marshal(u)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SumValues totals the outputs of utxos.
func SumValues(utxos []UTxO) (Value, error) {
	var total Value
	for _, u := range utxos {
		var err error
		if total, err = total.Add(u.Output.Amount); err != nil {
			return Value{}, err
		}
	}
	return total, nil
}
