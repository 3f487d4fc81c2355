package ledger

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxMetadataChunk is the largest text or byte string allowed in metadata.
const MaxMetadataChunk = 64

var ErrUnsupportedMetadatum = errors.New("unsupported metadatum type")

// Metadata is transaction metadata keyed by label.
type Metadata map[uint64]any

// Normalize converts v into a value the metadata encoding accepts: text
// longer than 64 bytes becomes a list of chunks, byte strings likewise, and
// integers stay integers. Booleans, floats and nil have no metadata form and
// are rejected; callers stringify them first.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case string:
		if len(t) <= MaxMetadataChunk {
			return t, nil
		}
		return ChunkString(t), nil
	case []byte:
		if len(t) <= MaxMetadataChunk {
			return t, nil
		}
		var chunks []any
		for len(t) > 0 {
			n := min(MaxMetadataChunk, len(t))
			chunks = append(chunks, t[:n])
			t = t[n:]
		}
		return chunks, nil
	case int:
		return int64(t), nil
	case int64, uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			n, err := Normalize(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if len(k) > MaxMetadataChunk {
				return nil, fmt.Errorf("metadata key %q exceeds %d bytes", k, MaxMetadataChunk)
			}
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return Normalize(out)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMetadatum, v)
	}
}

// ChunkString splits s into pieces of at most 64 bytes without breaking a
// UTF-8 sequence.
func ChunkString(s string) []any {
	var chunks []any
	for len(s) > MaxMetadataChunk {
		cut := MaxMetadataChunk
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}

// Bytes encodes the metadata as Shelley auxiliary data (a bare metadata map).
func (m Metadata) Bytes() ([]byte, error) {
	out := make(map[uint64]any, len(m))
	for l, v := range m {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", l, err)
		}
		out[l] = n
	}
	return encMode.Marshal(out)
}

// Hash is the auxiliary data hash stored in the transaction body.
func (m Metadata) Hash() (Hash32, error) {
	b, err := m.Bytes()
	if err != nil {
		return Hash32{}, err
	}
	return Blake2b256(b), nil
}
