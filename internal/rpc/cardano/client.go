package cardano

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/pkg/common/logger"
	"github.com/fystack/identity-minter/pkg/ratelimiter"
)

// pageSize is the Blockfrost maximum for paged endpoints.
const pageSize = 100

// ErrNotFound is returned when Blockfrost answers 404 for a single resource.
var ErrNotFound = errors.New("not found")

type CardanoClient struct {
	*rpc.BaseClient
}

// NewCardanoClient creates a new Cardano client
// Uses Blockfrost API (https://blockfrost.io/) or compatible Cardano REST API
func NewCardanoClient(
	baseURL string,
	auth *rpc.AuthConfig,
	timeout time.Duration,
	rl *ratelimiter.HostLimiter,
) *CardanoClient {
	return &CardanoClient{
		BaseClient: rpc.NewBaseClient(
			baseURL,
			"cardano",
			rpc.ClientTypeREST,
			auth,
			timeout,
			rl,
		),
	}
}

// ProjectAuth returns the Blockfrost project_id header auth.
func ProjectAuth(projectID string) *rpc.AuthConfig {
	if projectID == "" {
		return nil
	}
	return &rpc.AuthConfig{Type: rpc.AuthTypeHeader, Key: "project_id", Value: projectID}
}

// GetLatestBlock fetches the chain tip.
func (c *CardanoClient) GetLatestBlock(ctx context.Context) (*BlockResponse, error) {
	data, err := c.Do(ctx, http.MethodGet, "/blocks/latest", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", apiError(err, data))
	}

	var block BlockResponse
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block response: %w", err)
	}
	return &block, nil
}

// GetLatestBlockNumber fetches the latest block number from Cardano
func (c *CardanoClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	block, err := c.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	return block.Height, nil
}

// GetAddressUTxOs walks all pages of the address UTxO listing. An address that
// has never been used yields an empty slice.
func (c *CardanoClient) GetAddressUTxOs(ctx context.Context, address string) ([]UTxO, error) {
	endpoint := fmt.Sprintf("/addresses/%s/utxos", address)

	var all []UTxO
	for page := 1; ; page++ {
		data, err := c.Do(ctx, http.MethodGet, endpoint, nil, map[string]string{
			"page":  strconv.Itoa(page),
			"count": strconv.Itoa(pageSize),
			"order": "asc",
		})
		if err != nil {
			if rpc.IsNotFound(err) {
				return all, nil
			}
			return nil, fmt.Errorf("failed to get utxos for %s: %w", address, apiError(err, data))
		}

		var batch []UTxO
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal utxos response: %w", err)
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	logger.Debug("Fetched address utxos", "address", address, "count", len(all))
	return all, nil
}

// GetProtocolParameters fetches the parameters of the current epoch.
func (c *CardanoClient) GetProtocolParameters(ctx context.Context) (*ProtocolParams, error) {
	data, err := c.Do(ctx, http.MethodGet, "/epochs/latest/parameters", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol parameters: %w", apiError(err, data))
	}

	var params ProtocolParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protocol parameters: %w", err)
	}
	return &params, nil
}

// GetAsset looks up a native asset by unit (policy id + hex asset name).
func (c *CardanoClient) GetAsset(ctx context.Context, unit string) (*Asset, error) {
	data, err := c.Do(ctx, http.MethodGet, "/assets/"+unit, nil, nil)
	if err != nil {
		if rpc.IsNotFound(err) {
			return nil, fmt.Errorf("asset %s: %w", unit, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", unit, apiError(err, data))
	}

	var asset Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset response: %w", err)
	}
	return &asset, nil
}

// SubmitTx posts a signed transaction and returns its hash.
func (c *CardanoClient) SubmitTx(ctx context.Context, txCBOR []byte) (string, error) {
	data, err := c.DoRaw(ctx, http.MethodPost, "/tx/submit", bytes.NewReader(txCBOR), "application/cbor")
	if err != nil {
		return "", fmt.Errorf("failed to submit tx: %w", apiError(err, data))
	}

	var txHash string
	if err := json.Unmarshal(data, &txHash); err != nil {
		return "", fmt.Errorf("failed to unmarshal submit response: %w", err)
	}
	return txHash, nil
}

// apiError attaches the decoded Blockfrost error body, keeping the HTTP error
// in the chain for status checks.
func apiError(err error, body []byte) error {
	if len(body) == 0 {
		return err
	}
	var resp ErrorResponse
	if json.Unmarshal(body, &resp) != nil || resp.Message == "" {
		return err
	}
	return errors.Join(&resp, err)
}
