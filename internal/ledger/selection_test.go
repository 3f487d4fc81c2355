package ledger

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestSelectRandomImprove_CoversTarget(t *testing.T) {
	var utxos []UTxO
	for i := 0; i < 10; i++ {
		utxos = append(utxos, testUTxO(t, uint32(i), NewValue(uint64(i+1)*1_000_000)))
	}

	sel, err := SelectRandomImprove(utxos, NewValue(5_000_000), seeded())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sel.Total.Coin, uint64(5_000_000))

	sum, err := SumValues(sel.Inputs)
	require.NoError(t, err)
	assert.Equal(t, sum, sel.Total)
}

func TestSelectRandomImprove_StaysUnderThreeTimesWhenPossible(t *testing.T) {
	var utxos []UTxO
	for i := 0; i < 50; i++ {
		utxos = append(utxos, testUTxO(t, uint32(i), NewValue(1_000_000)))
	}
	sel, err := SelectRandomImprove(utxos, NewValue(10_000_000), seeded())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sel.Total.Coin, uint64(10_000_000))
	assert.LessOrEqual(t, sel.Total.Coin, uint64(30_000_000))
}

func TestSelectRandomImprove_MultiAsset(t *testing.T) {
	p := mustPolicy(t)
	utxos := []UTxO{
		testUTxO(t, 0, NewValue(5_000_000)),
		testUTxO(t, 1, NewValue(1_500_000).WithAsset(p, "tok", 10)),
		testUTxO(t, 2, NewValue(3_000_000)),
	}

	sel, err := SelectRandomImprove(utxos, NewValue(2_000_000).WithAsset(p, "tok", 4), seeded())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), sel.Total.Quantity(AssetID{Policy: p, Name: "tok"}))
	assert.GreaterOrEqual(t, sel.Total.Coin, uint64(2_000_000))
}

func TestSelectRandomImprove_Insufficient(t *testing.T) {
	utxos := []UTxO{testUTxO(t, 0, NewValue(1_000_000))}

	_, err := SelectRandomImprove(utxos, NewValue(2_000_000), seeded())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.EqualError(t, err, "UTxO Balance Insufficient")

	_, err = SelectRandomImprove(utxos, NewValue(0).WithAsset(mustPolicy(t), "missing", 1), seeded())
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = SelectRandomImprove(nil, NewValue(0), seeded())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSelectRandomImprove_ZeroTargetTakesOneInput(t *testing.T) {
	utxos := []UTxO{testUTxO(t, 0, NewValue(1_000_000)), testUTxO(t, 1, NewValue(2_000_000))}
	sel, err := SelectRandomImprove(utxos, NewValue(0), seeded())
	require.NoError(t, err)
	assert.Len(t, sel.Inputs, 1)
}
