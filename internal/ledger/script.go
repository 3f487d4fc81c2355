package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Native script constructors.
const (
	ScriptPubkey uint64 = 0
)

// NativeScript is a single-signature native script: [0, keyhash].
type NativeScript struct {
	_       struct{} `cbor:",toarray"`
	Type    uint64
	KeyHash []byte
}

func NewPubkeyScript(keyHash Hash28) NativeScript {
	return NativeScript{Type: ScriptPubkey, KeyHash: append([]byte(nil), keyHash[:]...)}
}

func (s NativeScript) Bytes() ([]byte, error) {
	if s.Type != ScriptPubkey {
		return nil, fmt.Errorf("unsupported native script type %d", s.Type)
	}
	if len(s.KeyHash) != Hash28Size {
		return nil, fmt.Errorf("script key hash must be %d bytes", Hash28Size)
	}
	return encMode.Marshal(s)
}

// Hash is the script hash, which is also the policy id of assets minted under
// the script: blake2b-224 over the native script tag 0x00 and the script CBOR.
func (s NativeScript) Hash() (Hash28, error) {
	b, err := s.Bytes()
	if err != nil {
		return Hash28{}, err
	}
	return Blake2b224(append([]byte{0x00}, b...)), nil
}

func decodeNativeScript(raw cbor.RawMessage) (NativeScript, error) {
	var s NativeScript
	if err := cbor.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("decode native script: %w", err)
	}
	return s, nil
}
