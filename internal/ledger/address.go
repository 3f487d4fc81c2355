package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Shelley address header types (high nibble of the first byte).
const (
	AddrBaseKeyKey       byte = 0x0
	AddrBaseScriptKey    byte = 0x1
	AddrBaseKeyScript    byte = 0x2
	AddrBaseScriptScript byte = 0x3
	AddrPointerKey       byte = 0x4
	AddrPointerScript    byte = 0x5
	AddrEnterpriseKey    byte = 0x6
	AddrEnterpriseScript byte = 0x7
	AddrByron            byte = 0x8
	AddrRewardKey        byte = 0xe
	AddrRewardScript     byte = 0xf
)

var (
	ErrUnsupportedAddress = errors.New("address has no payment key credential")
	ErrMalformedAddress   = errors.New("malformed address")
)

// Address is the raw binary form of a Cardano address.
type Address []byte

// ParseAddress accepts the hex form returned by CIP-30 wallets or a bech32
// string (addr1..., addr_test1...).
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedAddress)
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(s, "0x")); err == nil {
		return validate(b)
	}

	_, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	b, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	return validate(b)
}

func validate(b []byte) (Address, error) {
	if len(b) < 1+Hash28Size {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedAddress, len(b))
	}
	a := Address(b)
	switch a.Type() {
	case AddrBaseKeyKey, AddrBaseScriptKey, AddrBaseKeyScript, AddrBaseScriptScript:
		if len(b) != 1+2*Hash28Size {
			return nil, fmt.Errorf("%w: base address of %d bytes", ErrMalformedAddress, len(b))
		}
	case AddrPointerKey, AddrPointerScript:
		// three variable-length naturals follow the credential
		if len(b) < 1+Hash28Size+3 {
			return nil, fmt.Errorf("%w: pointer address of %d bytes", ErrMalformedAddress, len(b))
		}
	case AddrEnterpriseKey, AddrEnterpriseScript, AddrRewardKey, AddrRewardScript:
		if len(b) != 1+Hash28Size {
			return nil, fmt.Errorf("%w: %d bytes for type %d", ErrMalformedAddress, len(b), a.Type())
		}
	}
	return a, nil
}

// NewEnterpriseAddress builds a key-credential enterprise address.
func NewEnterpriseAddress(networkID byte, keyHash Hash28) Address {
	a := make(Address, 0, 1+Hash28Size)
	a = append(a, AddrEnterpriseKey<<4|networkID&0x0f)
	return append(a, keyHash[:]...)
}

func (a Address) Type() byte      { return a[0] >> 4 }
func (a Address) NetworkID() byte { return a[0] & 0x0f }

// PaymentKeyHash returns the payment key hash of base, pointer and enterprise
// addresses whose payment part is a key. Script-locked and reward addresses
// return ErrUnsupportedAddress.
func (a Address) PaymentKeyHash() (Hash28, error) {
	var h Hash28
	if len(a) < 1+Hash28Size {
		return h, ErrMalformedAddress
	}
	switch a.Type() {
	case AddrBaseKeyKey, AddrBaseKeyScript, AddrPointerKey, AddrEnterpriseKey:
		copy(h[:], a[1:1+Hash28Size])
		return h, nil
	default:
		return h, fmt.Errorf("%w: header type %d", ErrUnsupportedAddress, a.Type())
	}
}

func (a Address) hrp() string {
	prefix := "addr"
	if t := a.Type(); t == AddrRewardKey || t == AddrRewardScript {
		prefix = "stake"
	}
	if a.NetworkID() != 1 {
		prefix += "_test"
	}
	return prefix
}

// String renders the bech32 form. Byron addresses fall back to hex.
func (a Address) String() string {
	if len(a) == 0 {
		return ""
	}
	if a.Type() == AddrByron {
		return a.Hex()
	}
	conv, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return a.Hex()
	}
	s, err := bech32.Encode(a.hrp(), conv)
	if err != nil {
		return a.Hex()
	}
	return s
}

func (a Address) Hex() string { return hex.EncodeToString(a) }

// ShortAddress abbreviates an address for display.
func ShortAddress(s string) string {
	if len(s) < 20 {
		return s
	}
	return s[:12] + "..." + s[len(s)-8:]
}
