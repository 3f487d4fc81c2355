package ipfs

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("content not found")
	ErrTooLarge    = errors.New("file exceeds upload limit")
	ErrEmptyFile   = errors.New("file is empty")
	ErrNoProviders = errors.New("no ipfs provider configured")
	ErrMissingCID  = errors.New("provider response has no cid")
)

// UploadResult locates uploaded content.
type UploadResult struct {
	CID     string `json:"cid"`
	URL     string `json:"url"`
	Gateway string `json:"gateway"`
}

type Uploader interface {
	Name() string
	Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error)
}

// configured rejects empty keys and the placeholders shipped in sample env files.
func configured(keys ...string) bool {
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || strings.HasPrefix(k, "your_") {
			return false
		}
	}
	return true
}
