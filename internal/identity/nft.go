package identity

import (
	"bytes"
	"time"

	"github.com/samber/lo"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/pkg/common/enum"
)

// NFT is a minted identity token together with its metadata.
type NFT struct {
	PolicyID  string       `json:"policyId"`
	AssetName string       `json:"assetName"`
	Unit      string       `json:"unit"`
	TxHash    string       `json:"txHash,omitempty"`
	Owner     string       `json:"owner"`
	Network   enum.Network `json:"network"`
	Metadata  Metadata     `json:"metadata"`
	MintedAt  time.Time    `json:"mintedAt"`
}

// CheckAccess reports whether requester may view the identity behind nft.
// Public identities are open, private ones only to the owner, selective ones
// to the owner and the authorized addresses.
func CheckAccess(nft NFT, requester string) bool {
	switch nft.Metadata.Privacy {
	case enum.PrivacyPublic:
		return true
	case enum.PrivacyPrivate:
		return sameAddress(nft.Owner, requester)
	case enum.PrivacySelective:
		if sameAddress(nft.Owner, requester) {
			return true
		}
		return lo.ContainsBy(nft.Metadata.AuthorizedAddresses, func(a string) bool {
			return sameAddress(a, requester)
		})
	default:
		return false
	}
}

// sameAddress compares two addresses given as bech32 or hex.
func sameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	pa, err := ledger.ParseAddress(a)
	if err != nil {
		return false
	}
	pb, err := ledger.ParseAddress(b)
	if err != nil {
		return false
	}
	return bytes.Equal(pa, pb)
}
