package infra

import (
	"encoding/json"
)

type KVPair struct {
	Key   string
	Value []byte
}

// KVStore is the local key-value store used for identity records and
// simulated IPFS blobs. Values go through the store's Codec.
type KVStore interface {
	SetAny(k string, v any) error
	GetAny(k string, v any) (found bool, err error)
	Has(k string) (bool, error)

	List(prefix string) ([]*KVPair, error)
	Delete(k string) error
	Close() error
}

// Codec encodes/decodes Go values to/from slices of bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default codec for structured values.
var JSON = JSONcodec{}

type JSONcodec struct{}

func (c JSONcodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONcodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
