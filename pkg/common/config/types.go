package config

import (
	"time"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

// NetworkConfig carries the per-network endpoints and the slot timing used to
// estimate the current slot from wall-clock time.
type NetworkConfig struct {
	BlockfrostURL string     `yaml:"blockfrost_url" validate:"omitempty,url"`
	Slot          SlotTiming `yaml:"slot"`
}

type SlotTiming struct {
	// wall-clock time of ZeroSlot (start of the Shelley era)
	ZeroTime   time.Time     `yaml:"zero_time"`
	ZeroSlot   uint64        `yaml:"zero_slot"`
	SlotLength time.Duration `yaml:"slot_length"`
	// empirical correction in slots, added to the estimate
	Offset int64 `yaml:"offset"`
}

var networkPresets = map[enum.Network]NetworkConfig{
	enum.NetworkMainnet: {
		BlockfrostURL: "https://cardano-mainnet.blockfrost.io/api/v0",
		Slot: SlotTiming{
			ZeroTime:   time.Unix(1596059091, 0).UTC(),
			ZeroSlot:   4492800,
			SlotLength: time.Second,
		},
	},
	enum.NetworkPreprod: {
		BlockfrostURL: "https://cardano-preprod.blockfrost.io/api/v0",
		Slot: SlotTiming{
			ZeroTime:   time.Unix(1655769600, 0).UTC(),
			ZeroSlot:   86400,
			SlotLength: time.Second,
		},
	},
	enum.NetworkPreview: {
		BlockfrostURL: "https://cardano-preview.blockfrost.io/api/v0",
		Slot: SlotTiming{
			ZeroTime:   time.Unix(1666656000, 0).UTC(),
			ZeroSlot:   0,
			SlotLength: time.Second,
		},
	},
}

// Preset returns the built-in settings for a network.
func Preset(n enum.Network) (NetworkConfig, bool) {
	p, ok := networkPresets[n]
	return p, ok
}

// ActiveNetwork returns the settings of the selected network.
func (c *Config) ActiveNetwork() NetworkConfig {
	return c.Networks[c.Network]
}
