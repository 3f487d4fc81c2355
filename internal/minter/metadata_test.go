package minter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/pkg/common/enum"
)

func TestCIP25Metadata(t *testing.T) {
	meta := identity.Metadata{
		Name:                "Alice",
		Image:               "ipfs://QmX",
		Description:         "desc",
		Attributes:          []identity.Attribute{{TraitType: "Privacy Level", Value: "private"}},
		Privacy:             enum.PrivacyPrivate,
		Encrypted:           true,
		AuthorizedAddresses: []string{"addr_a", "addr_b"},
		Timestamp:           1700000000000,
		Version:             "1.0",
	}
	md := CIP25Metadata("policy", "Asset1", meta, "image/png")

	label, ok := md[721].(map[string]any)
	require.True(t, ok)
	asset := label["policy"].(map[string]any)["Asset1"].(map[string]any)

	assert.Equal(t, "Alice", asset["name"])
	assert.Equal(t, "ipfs://QmX", asset["image"])
	assert.Equal(t, "image/png", asset["mediaType"])
	assert.Equal(t, []any{map[string]any{"trait_type": "Privacy Level", "value": "private"}}, asset["attributes"])

	props := asset["properties"].(map[string]any)
	assert.Equal(t, "true", props["encrypted"])
	assert.Equal(t, "1700000000000", props["timestamp"])
	assert.Equal(t, "private", props["privacy"])
	assert.Equal(t, []any{"addr_a", "addr_b"}, props["authorizedAddresses"])

	_, err := md.Bytes()
	require.NoError(t, err)
}

func TestCIP25Metadata_LongImageIsChunked(t *testing.T) {
	meta := identity.Metadata{Image: "ipfs://" + strings.Repeat("b", 80), Privacy: enum.PrivacyPublic}
	md := CIP25Metadata("policy", "Asset1", meta, "image/jpeg")
	b, err := md.Bytes()
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
