package ledger

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	Hash28Size = 28
	Hash32Size = 32
)

// Hash28 is a blake2b-224 digest: key hashes, script hashes, policy ids.
type Hash28 [Hash28Size]byte

// Hash32 is a blake2b-256 digest: transaction ids, auxiliary data hashes.
type Hash32 [Hash32Size]byte

func (h Hash28) String() string { return hex.EncodeToString(h[:]) }
func (h Hash32) String() string { return hex.EncodeToString(h[:]) }

func Blake2b224(data []byte) Hash28 {
	d, err := blake2b.New(Hash28Size, nil)
	if err != nil {
		// only fails for sizes outside 1..64 or keys over 64 bytes
		panic(err)
	}
	d.Write(data)
	var h Hash28
	copy(h[:], d.Sum(nil))
	return h
}

func Blake2b256(data []byte) Hash32 {
	return blake2b.Sum256(data)
}

func ParseHash28(s string) (Hash28, error) {
	var h Hash28
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != Hash28Size {
		return h, fmt.Errorf("hash must be %d bytes, got %d", Hash28Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != Hash32Size {
		return h, fmt.Errorf("hash must be %d bytes, got %d", Hash32Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}
