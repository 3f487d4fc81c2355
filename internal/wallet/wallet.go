package wallet

import (
	"context"
	"fmt"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

// API is the subset of the CIP-30 wallet API used by this module. Values are
// exchanged as hex encoded CBOR, as CIP-30 wallets do.
type API interface {
	GetNetworkID(ctx context.Context) (int, error)
	// GetUtxos returns nil when the wallet holds no outputs.
	GetUtxos(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context) (string, error)
	GetChangeAddress(ctx context.Context) (string, error)
	// SignTx returns a witness set. It may block until the user answers.
	SignTx(ctx context.Context, txHex string, partial bool) (string, error)
	SubmitTx(ctx context.Context, txHex string) (string, error)
}

// Extension is an installed wallet that can be enabled.
type Extension interface {
	Name() string
	Enable(ctx context.Context) (API, error)
}

// Connection is an enabled wallet verified to be on the expected network.
type Connection struct {
	API
	Name          string
	NetworkID     int
	ChangeAddress ledger.Address
}

// Connect enables ext and checks that it is on network.
func Connect(ctx context.Context, ext Extension, network enum.Network) (*Connection, error) {
	if ext == nil {
		return nil, ErrNotConnected
	}
	api, err := ext.Enable(ctx)
	if err != nil {
		return nil, fmt.Errorf("enable %s: %w", ext.Name(), err)
	}

	id, err := api.GetNetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get network id: %w", err)
	}
	if id != network.ID() {
		return nil, fmt.Errorf("%w: expected %s, wallet reports %s",
			ErrNetworkMismatch, network, enum.NetworkName(id))
	}

	raw, err := api.GetChangeAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("get change address: %w", err)
	}
	addr, err := ledger.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}

	logger.Info("Wallet connected",
		"wallet", ext.Name(),
		"network", enum.NetworkName(id),
		"address", ledger.ShortAddress(addr.String()),
	)
	return &Connection{API: api, Name: ext.Name(), NetworkID: id, ChangeAddress: addr}, nil
}
