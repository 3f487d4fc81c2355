package minter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/pkg/common/constant"
)

// Preparation previews a mint for an address without touching a wallet.
type Preparation struct {
	PolicyID     string         `json:"policyId"`
	AssetName    string         `json:"assetName"`
	AssetNameHex string         `json:"assetNameHex"`
	Unit         string         `json:"unit"`
	Address      string         `json:"walletAddress"`
	Network      string         `json:"network"`
	CurrentSlot  uint64         `json:"currentSlot"`
	TTL          uint64         `json:"ttl"`
	LockTime     time.Time      `json:"lockTime"`
	Metadata     map[string]any `json:"metadata"`
}

// Prepare runs the address, policy, slot and metadata steps of a mint for
// address. Nothing is built or signed.
func (m *Minter) Prepare(ctx context.Context, address string, meta identity.Metadata) (*Preparation, error) {
	p, err := m.plan(ctx, address, meta, func(Stage, string) {})
	if err != nil {
		return nil, err
	}
	slotLength := m.cfg.SlotLength
	if slotLength <= 0 {
		slotLength = time.Second
	}
	label, _ := p.metadata[constant.NFTMetadataLabel].(map[string]any)
	return &Preparation{
		PolicyID:     p.policy.String(),
		AssetName:    p.assetName,
		AssetNameHex: hex.EncodeToString([]byte(p.assetName)),
		Unit:         p.unit(),
		Address:      p.addr.String(),
		Network:      string(m.cfg.Network),
		CurrentSlot:  p.slot,
		TTL:          p.ttl,
		LockTime:     m.now().Add(time.Duration(m.cfg.TTLBufferSlots) * slotLength).UTC(),
		Metadata:     label,
	}, nil
}
