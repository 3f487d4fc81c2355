package ipfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fystack/identity-minter/pkg/common/constant"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/infra"
)

// Local simulates an upload: the content id is derived from the sha256 of
// the data and the bytes stay in the local store. Nothing is published.
type Local struct {
	kv      infra.KVStore
	gateway string
}

type blob struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"data"`
	StoredAt    time.Time `json:"storedAt"`
}

func NewLocal(kv infra.KVStore, gateway string) *Local {
	return &Local{kv: kv, gateway: strings.TrimSuffix(gateway, "/")}
}

func (l *Local) Name() string { return "local" }

// SimulatedCID returns "Qm" followed by the first 44 hex digits of sha256(data).
func SimulatedCID(data []byte) string {
	sum := sha256.Sum256(data)
	return "Qm" + hex.EncodeToString(sum[:])[:44]
}

func (l *Local) Upload(_ context.Context, data []byte, filename string) (*UploadResult, error) {
	cid := SimulatedCID(data)
	err := l.kv.SetAny(constant.IPFSBlobKeyPrefix+cid, blob{
		Filename:    filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
		StoredAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("store simulated upload: %w", err)
	}
	logger.Warn("Using simulated IPFS upload, content is only stored locally", "cid", cid)
	return &UploadResult{
		CID:     cid,
		URL:     l.gateway + "/" + cid,
		Gateway: "local (simulated)",
	}, nil
}

// Get returns locally stored content. found is false when cid is unknown.
func (l *Local) Get(cid string) (data []byte, found bool, err error) {
	var b blob
	found, err = l.kv.GetAny(constant.IPFSBlobKeyPrefix+cid, &b)
	if err != nil || !found {
		return nil, found, err
	}
	return b.Data, true, nil
}

func (l *Local) Has(cid string) (bool, error) {
	return l.kv.Has(constant.IPFSBlobKeyPrefix + cid)
}
