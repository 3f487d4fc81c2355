package cardano

import (
	"context"

	"github.com/fystack/identity-minter/internal/rpc"
)

// CardanoAPI defines the Blockfrost operations used by the wallet, slot and
// NFT lookup code.
type CardanoAPI interface {
	rpc.NetworkClient
	GetLatestBlock(ctx context.Context) (*BlockResponse, error)
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	GetAddressUTxOs(ctx context.Context, address string) ([]UTxO, error)
	GetProtocolParameters(ctx context.Context) (*ProtocolParams, error)
	GetAsset(ctx context.Context, unit string) (*Asset, error)
	SubmitTx(ctx context.Context, txCBOR []byte) (string, error)
}

var _ CardanoAPI = (*CardanoClient)(nil)
