package ledger

import "fmt"

// utxoEntryOverhead is the per-entry byte overhead added to the output size
// when computing the minimum ada of an output (Babbage rule).
const utxoEntryOverhead = 160

type ProtocolParams struct {
	MinFeeA          uint64
	MinFeeB          uint64
	CoinsPerUTxOByte uint64
	MaxTxSize        uint64
	MaxValueSize     uint64
}

// DefaultProtocolParams are mainnet values at the time of writing.
func DefaultProtocolParams() ProtocolParams {
	return ProtocolParams{
		MinFeeA:          44,
		MinFeeB:          155381,
		CoinsPerUTxOByte: 4310,
		MaxTxSize:        16384,
		MaxValueSize:     5000,
	}
}

// MinFee is the linear fee for a transaction of size bytes.
func (p ProtocolParams) MinFee(size int) uint64 {
	return p.MinFeeA*uint64(size) + p.MinFeeB
}

// MinUTxO returns the minimum coin out must carry. The coin field is part of
// the measured size, so the estimate is repeated until it holds for itself.
func (p ProtocolParams) MinUTxO(out TxOut) (uint64, error) {
	probe := TxOut{Address: out.Address, Amount: out.Amount.Clone()}
	for i := 0; i < 4; i++ {
		b, err := encMode.Marshal(probe)
		if err != nil {
			return 0, err
		}
		minCoin := p.CoinsPerUTxOByte * (utxoEntryOverhead + uint64(len(b)))
		if probe.Amount.Coin >= minCoin {
			return minCoin, nil
		}
		probe.Amount.Coin = minCoin
	}
	return 0, fmt.Errorf("min utxo did not converge")
}

// ValueSize is the encoded size of v, bounded by MaxValueSize on outputs.
func ValueSize(v Value) (int, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
