package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

const (
	ownerBech32 = "addr_test1vz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzerspjrlsz"
	// same address as ownerBech32, header 0x60
	ownerHex = "609493315cd92eb5d8c4304e67b7e16ae36d61d34502694657811a2c8e"
	friend   = "addr1vx2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzers66hrl8"
	stranger = "addr1w8phkx6acpnf78fuvxn0mkew3l0fd058hzquvz7w36x4gtcyjy7wx"
)

func TestCheckAccess(t *testing.T) {
	nft := func(p enum.PrivacyLevel, authorized ...string) NFT {
		return NFT{Owner: ownerBech32, Metadata: Metadata{Privacy: p, AuthorizedAddresses: authorized}}
	}

	tests := []struct {
		name      string
		nft       NFT
		requester string
		want      bool
	}{
		{"public stranger", nft(enum.PrivacyPublic), stranger, true},
		{"private owner", nft(enum.PrivacyPrivate), ownerBech32, true},
		{"private owner hex", nft(enum.PrivacyPrivate), ownerHex, true},
		{"private stranger", nft(enum.PrivacyPrivate), stranger, false},
		{"selective authorized", nft(enum.PrivacySelective, friend), friend, true},
		{"selective owner", nft(enum.PrivacySelective, friend), ownerBech32, true},
		{"selective stranger", nft(enum.PrivacySelective, friend), stranger, false},
		{"selective empty list", nft(enum.PrivacySelective), stranger, false},
		{"unknown privacy", nft(enum.PrivacyLevel("friends")), ownerBech32, false},
		{"empty requester", nft(enum.PrivacyPrivate), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAccess(tt.nft, tt.requester))
		})
	}
}
