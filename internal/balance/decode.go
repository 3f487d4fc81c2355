package balance

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/fystack/identity-minter/pkg/common/logger"
)

// cborArray2 is the header byte of a CBOR array with two elements.
const cborArray2 = 0x82

// AssetInfo is one native asset held in the balance.
type AssetInfo struct {
	PolicyID  string `json:"policyId"`
	AssetName string `json:"assetName"`
	Quantity  string `json:"quantity"`
}

// WalletBalance is the decoded balance. ADA and Lovelace are exact;
// ADANumeric is for display and may round for very large balances.
type WalletBalance struct {
	ADA        string      `json:"ada"`
	ADANumeric float64     `json:"adaNumeric"`
	Lovelace   string      `json:"lovelace"`
	Assets     []AssetInfo `json:"assets"`
}

// Zero is the balance reported when the input cannot be decoded.
func Zero() WalletBalance {
	return WalletBalance{ADA: "0.00", Lovelace: "0", Assets: []AssetInfo{}}
}

// Decode turns a CIP-30 getBalance response into an ADA amount. It never
// fails: malformed input yields Zero.
func Decode(raw string) WalletBalance {
	wb, err := decode(raw)
	if err != nil {
		logger.Debug("Balance decode failed, reporting zero", "err", err)
		return Zero()
	}
	return wb
}

func decode(raw string) (WalletBalance, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if s == "" {
		return WalletBalance{}, errors.New("empty balance")
	}

	var (
		lovelace *big.Int
		assets   = []AssetInfo{}
	)
	if strings.HasPrefix(strings.ToLower(s), "82") {
		b, err := hex.DecodeString(s)
		if err != nil {
			return WalletBalance{}, fmt.Errorf("decode hex: %w", err)
		}
		var rest []byte
		lovelace, rest, err = readUint(b[1:])
		if err != nil {
			return WalletBalance{}, err
		}
		assets = decodeAssets(rest)
	} else {
		// legacy: the whole string is one hex integer
		var ok bool
		lovelace, ok = new(big.Int).SetString(s, 16)
		if !ok {
			return WalletBalance{}, fmt.Errorf("invalid hex integer %q", s)
		}
	}

	ada := LovelaceToADA(lovelace)
	numeric, err := strconv.ParseFloat(ada, 64)
	if err != nil {
		return WalletBalance{}, err
	}
	return WalletBalance{
		ADA:        ada,
		ADANumeric: numeric,
		Lovelace:   lovelace.String(),
		Assets:     assets,
	}, nil
}

// readUint reads a CBOR unsigned integer head and returns the value and the
// bytes after it.
func readUint(b []byte) (*big.Int, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errors.New("missing lovelace item")
	}
	head := b[0]
	if head <= 23 {
		return big.NewInt(int64(head)), b[1:], nil
	}

	var width int
	switch head {
	case 0x18:
		width = 1
	case 0x19:
		width = 2
	case 0x1a:
		width = 4
	case 0x1b:
		width = 8
	default:
		return nil, nil, fmt.Errorf("unsupported lovelace encoding 0x%02x", head)
	}
	if len(b) < 1+width {
		return nil, nil, fmt.Errorf("truncated lovelace: need %d bytes, have %d", width, len(b)-1)
	}

	buf := make([]byte, 8)
	copy(buf[8-width:], b[1:1+width])
	v := new(big.Int).SetUint64(binary.BigEndian.Uint64(buf))
	return v, b[1+width:], nil
}

// decodeAssets parses the multi-asset map that follows the coin. Anything
// unexpected leaves the list empty; the coin is still reported.
func decodeAssets(rest []byte) []AssetInfo {
	assets := []AssetInfo{}
	if len(rest) == 0 {
		return assets
	}
	var m map[cbor.ByteString]map[cbor.ByteString]uint64
	if err := cbor.Unmarshal(rest, &m); err != nil {
		logger.Debug("Skipping undecodable asset map", "err", err)
		return assets
	}
	for policy, names := range m {
		for name, qty := range names {
			assets = append(assets, AssetInfo{
				PolicyID:  hex.EncodeToString([]byte(policy)),
				AssetName: hex.EncodeToString([]byte(name)),
				Quantity:  strconv.FormatUint(qty, 10),
			})
		}
	}
	sortAssets(assets)
	return assets
}

// LovelaceToADA formats lovelace as ADA with two decimals, truncating, using
// only digit manipulation.
func LovelaceToADA(lovelace *big.Int) string {
	if lovelace == nil || lovelace.Sign() <= 0 {
		return "0.00"
	}
	d := lovelace.String()
	if len(d) <= 6 {
		padded := strings.Repeat("0", 6-len(d)) + d
		return "0." + padded[:2]
	}
	return d[:len(d)-6] + "." + d[len(d)-6:len(d)-4]
}
