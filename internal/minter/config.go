package minter

import (
	"context"
	"strconv"
	"time"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/constant"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

type Config struct {
	Network         enum.Network
	AssetNamePrefix string
	TTLBufferSlots  uint64
	// used to express the TTL as wall-clock time
	SlotLength     time.Duration
	OutputLovelace uint64
	MediaType      string
	Params         ledger.ProtocolParams
}

func DefaultConfig(network enum.Network) Config {
	return Config{
		Network:         network,
		AssetNamePrefix: constant.DefaultAssetNamePrefix,
		TTLBufferSlots:  constant.DefaultTTLBufferSlots,
		SlotLength:      time.Second,
		OutputLovelace:  constant.DefaultOutputLovelace,
		MediaType:       constant.DefaultMediaType,
		Params:          ledger.DefaultProtocolParams(),
	}
}

// ConfigFrom takes the mint settings of the application config.
func ConfigFrom(cfg *config.Config) Config {
	mc := cfg.Mint
	return Config{
		Network:         cfg.Network,
		AssetNamePrefix: mc.AssetNamePrefix,
		TTLBufferSlots:  mc.TTLBufferSlots,
		SlotLength:      cfg.ActiveNetwork().Slot.SlotLength,
		OutputLovelace:  mc.OutputLovelace,
		MediaType:       mc.MediaType,
		Params: ledger.ProtocolParams{
			MinFeeA:          mc.Protocol.MinFeeA,
			MinFeeB:          mc.Protocol.MinFeeB,
			CoinsPerUTxOByte: mc.Protocol.CoinsPerUTxOByte,
			MaxTxSize:        mc.Protocol.MaxTxSize,
			MaxValueSize:     mc.Protocol.MaxValueSize,
		},
	}
}

// ParamsSource provides current protocol parameters.
type ParamsSource interface {
	GetProtocolParameters(ctx context.Context) (*cardano.ProtocolParams, error)
}

// mergeParams overlays the non-zero values reported by the indexer on base.
func mergeParams(base ledger.ProtocolParams, pp *cardano.ProtocolParams) ledger.ProtocolParams {
	out := base
	if pp == nil {
		return out
	}
	if pp.MinFeeA > 0 {
		out.MinFeeA = pp.MinFeeA
	}
	if pp.MinFeeB > 0 {
		out.MinFeeB = pp.MinFeeB
	}
	if pp.MaxTxSize > 0 {
		out.MaxTxSize = pp.MaxTxSize
	}
	if v, err := strconv.ParseUint(pp.CoinsPerUTxOSize, 10, 64); err == nil && v > 0 {
		out.CoinsPerUTxOByte = v
	}
	if v, err := strconv.ParseUint(pp.MaxValSize, 10, 64); err == nil && v > 0 {
		out.MaxValueSize = v
	}
	return out
}

func (m *Minter) protocolParams(ctx context.Context) ledger.ProtocolParams {
	if m.paramsSrc == nil {
		return m.cfg.Params
	}
	pp, err := m.paramsSrc.GetProtocolParameters(ctx)
	if err != nil {
		logger.Warn("Fetching protocol parameters failed, using configured values", "error", err)
		return m.cfg.Params
	}
	return mergeParams(m.cfg.Params, pp)
}
