package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

const paymentSigningKeyType = "PaymentSigningKeyShelley_ed25519"

// textEnvelope is the cardano-cli key file format.
type textEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// LoadSigningKey reads a cardano-cli payment signing key file.
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return ParseSigningKey(data)
}

// ParseSigningKey decodes the JSON text envelope of a normal (non-extended)
// payment signing key.
func ParseSigningKey(data []byte) (ed25519.PrivateKey, error) {
	var env textEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse key envelope: %w", err)
	}
	if env.Type != paymentSigningKeyType {
		return nil, fmt.Errorf("unsupported key type %q", env.Type)
	}
	raw, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("decode key hex: %w", err)
	}
	var seed []byte
	if err := cbor.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode key cbor: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// EncodeSigningKey writes key in the text envelope format ParseSigningKey reads.
func EncodeSigningKey(key ed25519.PrivateKey) ([]byte, error) {
	raw, err := cbor.Marshal(key.Seed())
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(textEnvelope{
		Type:        paymentSigningKeyType,
		Description: "Payment Signing Key",
		CborHex:     hex.EncodeToString(raw),
	}, "", "    ")
}
