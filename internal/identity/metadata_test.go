package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

var fixedNow = func() time.Time { return time.UnixMilli(1_700_000_000_123) }

func TestNewMetadata_Defaults(t *testing.T) {
	m, err := NewMetadata("QmTestCid", enum.PrivacyPublic, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, DefaultName, m.Name)
	assert.Equal(t, "ipfs://QmTestCid", m.Image)
	assert.Equal(t, "QmTestCid", m.CID())
	assert.Equal(t, DefaultDescription, m.Description)
	assert.Equal(t, []Attribute{
		{TraitType: "Privacy Level", Value: "public"},
		{TraitType: "Encrypted", Value: "No"},
	}, m.Attributes)
	assert.False(t, m.Encrypted)
	assert.Equal(t, int64(1_700_000_000_123), m.Timestamp)
	assert.Equal(t, "1.0", m.Version)
}

func TestNewMetadata_Options(t *testing.T) {
	m, err := NewMetadata("ipfs://QmOther", enum.PrivacySelective, Options{
		Name:                "Alice",
		Description:         "Alice on Cardano",
		Encrypted:           true,
		AuthorizedAddresses: []string{"addr_test1vz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzerspjrlsz"},
		Now:                 fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", m.Name)
	assert.Equal(t, "ipfs://QmOther", m.Image)
	assert.Equal(t, "Yes", m.Attributes[1].Value)
	assert.Equal(t, "selective", m.Attributes[0].Value)
	assert.Len(t, m.AuthorizedAddresses, 1)

	custom := []Attribute{{TraitType: "Role", Value: "Builder"}}
	m, err = NewMetadata("QmOther", enum.PrivacyPublic, Options{Attributes: custom})
	require.NoError(t, err)
	assert.Equal(t, custom, m.Attributes)
}

func TestNewMetadata_Errors(t *testing.T) {
	_, err := NewMetadata("", enum.PrivacyPublic, Options{})
	assert.ErrorIs(t, err, ErrEmptyCID)

	_, err = NewMetadata("QmX", enum.PrivacyLevel("friends"), Options{})
	assert.ErrorIs(t, err, ErrInvalidPrivacy)
}
