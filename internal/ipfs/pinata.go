package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
)

const pinataGateway = "gateway.pinata.cloud"

// Pinata pins files with the legacy key/secret header pair.
type Pinata struct {
	client *rpc.BaseClient
}

func NewPinata(baseURL, apiKey, secret string, timeout time.Duration, rl *ratelimiter.HostLimiter) *Pinata {
	auth := &rpc.AuthConfig{Headers: map[string]string{
		"pinata_api_key":        apiKey,
		"pinata_secret_api_key": secret,
	}}
	return &Pinata{client: rpc.NewBaseClient(baseURL, "ipfs", rpc.ClientTypeREST, auth, timeout, rl)}
}

func (p *Pinata) Name() string { return "pinata" }

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (p *Pinata) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	logger.Debug("Uploading to Pinata", "file", filename, "size", len(data))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(map[string]string{"name": filename})
	if err != nil {
		return nil, err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	body, err := p.client.DoRaw(ctx, http.MethodPost, "/pinning/pinFileToIPFS", &buf, w.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("pinata upload: %w", err)
	}

	var resp pinataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode pinata response: %w", err)
	}
	if resp.IpfsHash == "" {
		return nil, ErrMissingCID
	}
	return &UploadResult{
		CID:     resp.IpfsHash,
		URL:     "https://" + pinataGateway + "/ipfs/" + resp.IpfsHash,
		Gateway: pinataGateway,
	}, nil
}
