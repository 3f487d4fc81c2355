package ledger

import (
	"encoding/hex"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = "50a522a459c26f001233aab967abd28daca949e80aad046d97b88b6f"

func mustPolicy(t *testing.T) Hash28 {
	t.Helper()
	p, err := ParseHash28(testPolicy)
	require.NoError(t, err)
	return p
}

func TestValue_MarshalCBOR(t *testing.T) {
	b, err := Marshal(NewValue(5_000_000))
	require.NoError(t, err)
	assert.Equal(t, "1a004c4b40", hex.EncodeToString(b))

	v := NewValue(2_000_000).WithAsset(mustPolicy(t), "CardanoIdentity1700000000000", 1)
	b, err = Marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		"821a001e8480a1581c"+testPolicy+"a1581c43617264616e6f4964656e746974793137303030303030303030303001",
		hex.EncodeToString(b))

	var back Value
	require.NoError(t, cbor.Unmarshal(b, &back))
	assert.Equal(t, v, back)
}

func TestValue_BalanceCBOR(t *testing.T) {
	b, err := NewValue(5_000_000).BalanceCBOR()
	require.NoError(t, err)
	assert.Equal(t, "821a004c4b40a0", hex.EncodeToString(b))

	b, err = Value{}.BalanceCBOR()
	require.NoError(t, err)
	assert.Equal(t, "8200a0", hex.EncodeToString(b))
}

func TestValue_UnmarshalCoinOnly(t *testing.T) {
	var v Value
	require.NoError(t, cbor.Unmarshal([]byte{0x18, 0x64}, &v))
	assert.Equal(t, uint64(100), v.Coin)
	assert.False(t, v.HasAssets())

	assert.Error(t, cbor.Unmarshal([]byte{0x60}, &v))
}

func TestValue_Arithmetic(t *testing.T) {
	p := mustPolicy(t)
	a := NewValue(10).WithAsset(p, "x", 5)
	b := NewValue(4).WithAsset(p, "x", 5)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(14), sum.Coin)
	assert.Equal(t, uint64(10), sum.Quantity(AssetID{Policy: p, Name: "x"}))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), diff.Coin)
	assert.False(t, diff.HasAssets(), "zero quantities are dropped")

	_, err = b.Sub(NewValue(5))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.True(t, a.Covers(b))
	assert.False(t, NewValue(100).Covers(b))

	// operands are not mutated
	assert.Equal(t, uint64(10), a.Coin)
	assert.Equal(t, uint64(5), a.Quantity(AssetID{Policy: p, Name: "x"}))
}

func TestAssetID_Unit(t *testing.T) {
	id := AssetID{Policy: mustPolicy(t), Name: "Card"}
	assert.Equal(t, testPolicy+"43617264", id.Unit())
}

func TestMint(t *testing.T) {
	p := mustPolicy(t)
	m := Mint{p: {"a": 1, "burned": -3}}

	minted := m.Minted()
	assert.Equal(t, uint64(1), minted.Quantity(AssetID{Policy: p, Name: "a"}))
	assert.Equal(t, uint64(0), minted.Quantity(AssetID{Policy: p, Name: "burned"}))

	b, err := Marshal(m)
	require.NoError(t, err)
	var back Mint
	require.NoError(t, cbor.Unmarshal(b, &back))
	assert.Equal(t, m, back)
}
