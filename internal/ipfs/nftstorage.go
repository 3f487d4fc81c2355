package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
)

const nftStorageGateway = "nftstorage.link"

// NFTStorage uploads through the NFT.Storage /upload endpoint.
type NFTStorage struct {
	client *rpc.BaseClient
}

func NewNFTStorage(baseURL, apiKey string, timeout time.Duration, rl *ratelimiter.HostLimiter) *NFTStorage {
	auth := &rpc.AuthConfig{Type: rpc.AuthTypeBearer, Value: apiKey}
	return &NFTStorage{client: rpc.NewBaseClient(baseURL, "ipfs", rpc.ClientTypeREST, auth, timeout, rl)}
}

func (n *NFTStorage) Name() string { return "nft.storage" }

type nftStorageResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	CID string `json:"cid"`
}

func (n *NFTStorage) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	logger.Debug("Uploading to NFT.Storage", "file", filename, "size", len(data))

	body, err := n.client.DoRaw(ctx, http.MethodPost, "/upload", bytes.NewReader(data), http.DetectContentType(data))
	if err != nil {
		if rpc.IsUnauthorized(err) {
			return nil, fmt.Errorf("nft.storage rejected the api key: %w", err)
		}
		return nil, fmt.Errorf("nft.storage upload: %w", err)
	}

	var resp nftStorageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode nft.storage response: %w", err)
	}
	cid := resp.Value.CID
	if cid == "" {
		cid = resp.CID
	}
	if cid == "" {
		return nil, ErrMissingCID
	}
	return &UploadResult{
		CID:     cid,
		URL:     "https://" + nftStorageGateway + "/ipfs/" + cid,
		Gateway: nftStorageGateway,
	}, nil
}
