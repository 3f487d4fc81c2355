package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Witness set map keys.
const (
	witnessVKeys         uint64 = 0
	witnessNativeScripts uint64 = 1
)

// VKeyWitness is [vkey, signature].
type VKeyWitness struct {
	_         struct{} `cbor:",toarray"`
	VKey      []byte
	Signature []byte
}

// SignBody produces a vkey witness over the transaction id.
func SignBody(key ed25519.PrivateKey, txHash Hash32) VKeyWitness {
	return VKeyWitness{
		VKey:      append([]byte(nil), key.Public().(ed25519.PublicKey)...),
		Signature: ed25519.Sign(key, txHash[:]),
	}
}

// Verify checks the witness signature against txHash.
func (w VKeyWitness) Verify(txHash Hash32) bool {
	if len(w.VKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(w.VKey, txHash[:], w.Signature)
}

// WitnessSet carries the parts of a witness set this package produces.
type WitnessSet struct {
	VKeys         []VKeyWitness
	NativeScripts []NativeScript
}

func (w WitnessSet) MarshalCBOR() ([]byte, error) {
	m := map[uint64]any{}
	if len(w.VKeys) > 0 {
		m[witnessVKeys] = w.VKeys
	}
	if len(w.NativeScripts) > 0 {
		m[witnessNativeScripts] = w.NativeScripts
	}
	return encMode.Marshal(m)
}

// DecodeWitnessSet reads vkey witnesses and native scripts, ignoring other keys.
func DecodeWitnessSet(raw []byte) (*WitnessSet, error) {
	fields, err := witnessFields(raw)
	if err != nil {
		return nil, err
	}
	var ws WitnessSet
	if v, ok := fields[witnessVKeys]; ok {
		if err := cbor.Unmarshal(untag(v), &ws.VKeys); err != nil {
			return nil, fmt.Errorf("decode vkey witnesses: %w", err)
		}
	}
	if v, ok := fields[witnessNativeScripts]; ok {
		var scripts []cbor.RawMessage
		if err := cbor.Unmarshal(untag(v), &scripts); err != nil {
			return nil, fmt.Errorf("decode native scripts: %w", err)
		}
		for _, s := range scripts {
			ns, err := decodeNativeScript(s)
			if err != nil {
				return nil, err
			}
			ws.NativeScripts = append(ws.NativeScripts, ns)
		}
	}
	return &ws, nil
}

func witnessFields(raw []byte) (map[uint64]cbor.RawMessage, error) {
	fields := map[uint64]cbor.RawMessage{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := cbor.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode witness set: %w", err)
	}
	return fields, nil
}

// untag strips a set tag (258) if present.
func untag(raw cbor.RawMessage) cbor.RawMessage {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(raw, &tagged); err == nil {
		return tagged.Content
	}
	return raw
}

// MergeWitnesses attaches native scripts to a wallet-produced witness set.
// Keys other than the native script list are kept byte for byte; scripts
// already present are not duplicated.
func MergeWitnesses(walletWitness []byte, scripts ...NativeScript) ([]byte, error) {
	fields, err := witnessFields(walletWitness)
	if err != nil {
		return nil, err
	}

	var merged []cbor.RawMessage
	seen := map[Hash28]bool{}
	if v, ok := fields[witnessNativeScripts]; ok {
		if err := cbor.Unmarshal(untag(v), &merged); err != nil {
			return nil, fmt.Errorf("decode native scripts: %w", err)
		}
		for _, raw := range merged {
			if ns, err := decodeNativeScript(raw); err == nil {
				if h, err := ns.Hash(); err == nil {
					seen[h] = true
				}
			}
		}
	}
	for _, s := range scripts {
		h, err := s.Hash()
		if err != nil {
			return nil, err
		}
		if seen[h] {
			continue
		}
		b, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		merged = append(merged, b)
		seen[h] = true
	}
	if len(merged) > 0 {
		list, err := encMode.Marshal(merged)
		if err != nil {
			return nil, err
		}
		fields[witnessNativeScripts] = list
	}
	return encMode.Marshal(fields)
}

// MergeWitnessesHex is MergeWitnesses over the hex strings exchanged with
// CIP-30 wallets.
func MergeWitnessesHex(walletWitnessHex string, scripts ...NativeScript) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(walletWitnessHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode witness hex: %w", err)
	}
	return MergeWitnesses(raw, scripts...)
}

// fakeWitnessSet has the size of a signed witness set with n vkey witnesses
// and the given scripts. Used for fee estimation before signing.
func fakeWitnessSet(n int, scripts []NativeScript) ([]byte, error) {
	ws := WitnessSet{NativeScripts: scripts}
	for i := 0; i < n; i++ {
		ws.VKeys = append(ws.VKeys, VKeyWitness{
			VKey:      make([]byte, ed25519.PublicKeySize),
			Signature: make([]byte, ed25519.SignatureSize),
		})
	}
	return encMode.Marshal(ws)
}
