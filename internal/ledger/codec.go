package ledger

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode sorts map keys length-first, the ordering the ledger uses when it
// re-serialises maps.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v with the canonical options used throughout the package.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// CBOR major types of the first byte.
const (
	majorUint  = 0
	majorArray = 4
	majorMap   = 5
)

func majorType(b byte) byte { return b >> 5 }
