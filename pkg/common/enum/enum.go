package enum

import "fmt"

type Network string
type PrivacyLevel string
type KVStoreType string
type SlotSourceType string
type IPFSProvider string

const (
	NetworkMainnet Network = "mainnet"
	NetworkPreprod Network = "preprod"
	NetworkPreview Network = "preview"
)

// ID returns the address network id (header low nibble) for the network.
func (n Network) ID() int {
	if n == NetworkMainnet {
		return 1
	}
	return 0
}

func (n Network) IsMainnet() bool { return n == NetworkMainnet }

// NetworkName is the human readable name for a CIP-30 network id.
func NetworkName(networkID int) string {
	switch networkID {
	case 0:
		return "Testnet"
	case 1:
		return "Mainnet"
	default:
		return fmt.Sprintf("Network %d", networkID)
	}
}

const (
	PrivacyPublic    PrivacyLevel = "public"
	PrivacyPrivate   PrivacyLevel = "private"
	PrivacySelective PrivacyLevel = "selective"
)

func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacySelective:
		return true
	}
	return false
}

const (
	KVStoreTypeBadger KVStoreType = "badger"
)

const (
	SlotSourceWallClock SlotSourceType = "wallclock"
	SlotSourceChainTip  SlotSourceType = "chain"
)

const (
	IPFSProviderNFTStorage IPFSProvider = "nft_storage"
	IPFSProviderPinata     IPFSProvider = "pinata"
	IPFSProviderLocal      IPFSProvider = "local"
)
