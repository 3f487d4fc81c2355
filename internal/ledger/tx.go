package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Transaction body map keys.
const (
	bodyInputs      uint64 = 0
	bodyOutputs     uint64 = 1
	bodyFee         uint64 = 2
	bodyTTL         uint64 = 3
	bodyAuxDataHash uint64 = 7
	bodyMint        uint64 = 9
	bodyReqSigners  uint64 = 14
)

// TxBody holds the body fields this package writes. A zero TTL is left out
// of the encoding, which is how a missing TTL shows up after decoding.
type TxBody struct {
	Inputs      []TxIn
	Outputs     []TxOut
	Fee         uint64
	TTL         uint64
	AuxDataHash *Hash32
	Mint        Mint
	// key hashes that must sign even when no input sits at them
	RequiredSigners []Hash28
}

func (b TxBody) MarshalCBOR() ([]byte, error) {
	inputs := append([]TxIn(nil), b.Inputs...)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].less(inputs[j]) })

	m := map[uint64]any{
		bodyInputs:  inputs,
		bodyOutputs: b.Outputs,
		bodyFee:     b.Fee,
	}
	if b.Outputs == nil {
		m[bodyOutputs] = []TxOut{}
	}
	if b.TTL != 0 {
		m[bodyTTL] = b.TTL
	}
	if b.AuxDataHash != nil {
		m[bodyAuxDataHash] = b.AuxDataHash[:]
	}
	if len(b.Mint) > 0 {
		m[bodyMint] = b.Mint
	}
	if len(b.RequiredSigners) > 0 {
		signers := make([][]byte, len(b.RequiredSigners))
		for i := range b.RequiredSigners {
			signers[i] = b.RequiredSigners[i][:]
		}
		m[bodyReqSigners] = signers
	}
	return encMode.Marshal(m)
}

func (b *TxBody) UnmarshalCBOR(data []byte) error {
	var fields map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	var out TxBody
	if raw, ok := fields[bodyInputs]; ok {
		if err := cbor.Unmarshal(untagSet(raw), &out.Inputs); err != nil {
			return fmt.Errorf("decode inputs: %w", err)
		}
	}
	if raw, ok := fields[bodyOutputs]; ok {
		if err := cbor.Unmarshal(raw, &out.Outputs); err != nil {
			return fmt.Errorf("decode outputs: %w", err)
		}
	}
	if raw, ok := fields[bodyFee]; ok {
		if err := cbor.Unmarshal(raw, &out.Fee); err != nil {
			return fmt.Errorf("decode fee: %w", err)
		}
	}
	if raw, ok := fields[bodyTTL]; ok {
		if err := cbor.Unmarshal(raw, &out.TTL); err != nil {
			return fmt.Errorf("decode ttl: %w", err)
		}
	}
	if raw, ok := fields[bodyAuxDataHash]; ok {
		var h Hash32
		if err := cbor.Unmarshal(raw, &h); err != nil {
			return fmt.Errorf("decode aux data hash: %w", err)
		}
		out.AuxDataHash = &h
	}
	if raw, ok := fields[bodyMint]; ok {
		if err := cbor.Unmarshal(raw, &out.Mint); err != nil {
			return err
		}
	}
	if raw, ok := fields[bodyReqSigners]; ok {
		if err := cbor.Unmarshal(untagSet(raw), &out.RequiredSigners); err != nil {
			return fmt.Errorf("decode required signers: %w", err)
		}
	}
	*b = out
	return nil
}

// untagSet strips the set tag 258 that Conway-era encoders put on sets.
func untagSet(raw cbor.RawMessage) cbor.RawMessage {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(raw, &tagged); err == nil && tagged.Number == 258 {
		return tagged.Content
	}
	return raw
}

// DecodeBody parses serialized body bytes.
func DecodeBody(raw []byte) (*TxBody, error) {
	var b TxBody
	if err := cbor.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Tx is a transaction with the body kept as the exact bytes that were hashed
// and signed.
type Tx struct {
	Body      TxBody
	BodyBytes []byte
	// witness set CBOR; "a0" before signing
	WitnessBytes []byte
	AuxBytes     []byte
}

type txArray struct {
	_       struct{} `cbor:",toarray"`
	Body    cbor.RawMessage
	Witness cbor.RawMessage
	IsValid bool
	Aux     cbor.RawMessage
}

var cborNull = cbor.RawMessage{0xf6}

// NewTx serializes body and prepares an unsigned transaction.
func NewTx(body TxBody, aux []byte) (*Tx, error) {
	bb, err := encMode.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return &Tx{Body: body, BodyBytes: bb, WitnessBytes: []byte{0xa0}, AuxBytes: aux}, nil
}

// Hash is the transaction id.
func (t *Tx) Hash() Hash32 { return Blake2b256(t.BodyBytes) }

func (t *Tx) Bytes() ([]byte, error) {
	aux := cborNull
	if len(t.AuxBytes) > 0 {
		aux = t.AuxBytes
	}
	witness := t.WitnessBytes
	if len(witness) == 0 {
		witness = []byte{0xa0}
	}
	return encMode.Marshal(txArray{
		Body:    t.BodyBytes,
		Witness: witness,
		IsValid: true,
		Aux:     aux,
	})
}

func (t *Tx) Hex() (string, error) {
	b, err := t.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WithWitnesses returns a copy of t carrying the given witness set.
func (t *Tx) WithWitnesses(witness []byte) *Tx {
	cp := *t
	cp.WitnessBytes = witness
	return &cp
}

// DecodeTx parses a full transaction, keeping the original body bytes.
func DecodeTx(raw []byte) (*Tx, error) {
	var fields []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	if len(fields) < 3 {
		return nil, errors.New("decode tx: too few fields")
	}
	body, err := DecodeBody(fields[0])
	if err != nil {
		return nil, err
	}
	tx := &Tx{Body: *body, BodyBytes: fields[0], WitnessBytes: fields[1]}
	// Alonzo+ has [body, witness, is_valid, aux]; Mary has [body, witness, aux]
	aux := fields[len(fields)-1]
	if len(aux) > 0 && aux[0] != 0xf6 {
		tx.AuxBytes = aux
	}
	return tx, nil
}

func DecodeTxHex(s string) (*Tx, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode tx hex: %w", err)
	}
	return DecodeTx(raw)
}
