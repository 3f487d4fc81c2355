package ledger

import (
	"errors"
	"math/rand/v2"
)

// ErrInsufficientBalance keeps the wording wallets and indexers report, so
// upstream messages and local failures classify the same way.
var ErrInsufficientBalance = errors.New("UTxO Balance Insufficient")

// Selection is the outcome of coin selection.
type Selection struct {
	Inputs []UTxO
	Total  Value
}

// asset is either an AssetID or, when ada is set, the coin.
type asset struct {
	id  AssetID
	ada bool
}

func (a asset) qty(v Value) uint64 {
	if a.ada {
		return v.Coin
	}
	return v.Quantity(a.id)
}

// SelectRandomImprove implements CIP-2 random-improve over every asset in
// target, native assets first and ada last. Phase one picks random UTxOs that
// hold the asset until the target is covered; phase two keeps adding random
// UTxOs while that moves the selected amount towards twice the target without
// passing three times the target.
func SelectRandomImprove(available []UTxO, target Value, rnd *rand.Rand) (Selection, error) {
	remaining := make([]UTxO, 0, len(available))
	for _, u := range available {
		if !u.Output.Amount.IsZero() {
			remaining = append(remaining, u)
		}
	}

	assets := make([]asset, 0, len(target.Assets)+1)
	for _, id := range target.AssetIDs() {
		assets = append(assets, asset{id: id})
	}
	assets = append(assets, asset{ada: true})

	var sel Selection
	take := func(i int) error {
		u := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)
		total, err := sel.Total.Add(u.Output.Amount)
		if err != nil {
			return err
		}
		sel.Total = total
		sel.Inputs = append(sel.Inputs, u)
		return nil
	}

	for _, a := range assets {
		want := a.qty(target)
		for a.qty(sel.Total) < want {
			idx := candidates(remaining, a)
			if len(idx) == 0 {
				return Selection{}, ErrInsufficientBalance
			}
			if err := take(idx[rnd.IntN(len(idx))]); err != nil {
				return Selection{}, err
			}
		}
	}

	for _, a := range assets {
		want := a.qty(target)
		if want == 0 {
			continue
		}
		ideal, limit := 2*want, 3*want
		for {
			idx := candidates(remaining, a)
			if len(idx) == 0 {
				break
			}
			pick := idx[rnd.IntN(len(idx))]
			cur := a.qty(sel.Total)
			next := cur + a.qty(remaining[pick].Output.Amount)
			if next > limit || distance(next, ideal) >= distance(cur, ideal) {
				break
			}
			if err := take(pick); err != nil {
				return Selection{}, err
			}
		}
	}

	// ada-only targets with nothing to spend still need one input
	if len(sel.Inputs) == 0 {
		idx := candidates(remaining, asset{ada: true})
		if len(idx) == 0 {
			return Selection{}, ErrInsufficientBalance
		}
		if err := take(idx[rnd.IntN(len(idx))]); err != nil {
			return Selection{}, err
		}
	}
	return sel, nil
}

func candidates(utxos []UTxO, a asset) []int {
	var idx []int
	for i, u := range utxos {
		if a.qty(u.Output.Amount) > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
