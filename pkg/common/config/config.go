package config

import (
	"time"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

type Config struct {
	Environment string                         `yaml:"environment" validate:"required,oneof=production development"`
	LogLevel    string                         `yaml:"log_level"   validate:"omitempty,oneof=debug info warn error"`
	Network     enum.Network                   `yaml:"network"     validate:"required,oneof=mainnet preprod preview"`
	Networks    map[enum.Network]NetworkConfig `yaml:"networks"    validate:"dive"`
	Blockfrost  BlockfrostConfig               `yaml:"blockfrost"`
	Wallet      WalletConfig                   `yaml:"wallet"`
	Mint        MintConfig                     `yaml:"mint"`
	IPFS        IPFSConfig                     `yaml:"ipfs"`
	Services    Services                       `yaml:"services"`
}

type WalletConfig struct {
	SigningKeyFile string `yaml:"signing_key_file"`
	// ask on the terminal before every signature
	ConfirmSign bool `yaml:"confirm_sign"`
}

type MintConfig struct {
	AssetNamePrefix string              `yaml:"asset_name_prefix" validate:"required,max=19"`
	TTLBufferSlots  uint64              `yaml:"ttl_buffer_slots"  validate:"required,min=60"`
	OutputLovelace  uint64              `yaml:"output_lovelace"   validate:"required,min=1000000"`
	MediaType       string              `yaml:"media_type"        validate:"required"`
	SlotSource      enum.SlotSourceType `yaml:"slot_source"       validate:"required,oneof=wallclock chain"`
	Protocol        ProtocolConfig      `yaml:"protocol"`
	// refresh fee parameters from Blockfrost before each mint
	FetchProtocolParams bool `yaml:"fetch_protocol_params"`
}

type ProtocolConfig struct {
	MinFeeA          uint64 `yaml:"min_fee_a"           validate:"required"`
	MinFeeB          uint64 `yaml:"min_fee_b"           validate:"required"`
	CoinsPerUTxOByte uint64 `yaml:"coins_per_utxo_byte" validate:"required"`
	MaxTxSize        uint64 `yaml:"max_tx_size"         validate:"required"`
	MaxValueSize     uint64 `yaml:"max_value_size"      validate:"required"`
}

type IPFSConfig struct {
	Providers      []enum.IPFSProvider `yaml:"providers"         validate:"required,min=1,dive,oneof=nft_storage pinata local"`
	NFTStorageURL  string              `yaml:"nft_storage_url"   validate:"required,url"`
	NFTStorageKey  string              `yaml:"nft_storage_key"`
	PinataURL      string              `yaml:"pinata_url"        validate:"required,url"`
	PinataAPIKey   string              `yaml:"pinata_api_key"`
	PinataSecret   string              `yaml:"pinata_secret"`
	Gateway        string              `yaml:"gateway"           validate:"required,url"`
	Timeout        time.Duration       `yaml:"timeout"`
	MaxUploadBytes int64               `yaml:"max_upload_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		Network:     enum.NetworkPreview,
		Blockfrost: BlockfrostConfig{
			ProjectIDEnv: "BLOCKFROST_API_KEY",
			Timeout:      15 * time.Second,
			RPS:          10,
			Burst:        20,
		},
		Wallet: WalletConfig{
			SigningKeyFile: "payment.skey",
		},
		Mint: MintConfig{
			AssetNamePrefix: "CardanoIdentity",
			TTLBufferSlots:  7200,
			OutputLovelace:  2_000_000,
			MediaType:       "image/jpeg",
			SlotSource:      enum.SlotSourceWallClock,
			Protocol: ProtocolConfig{
				MinFeeA:          44,
				MinFeeB:          155381,
				CoinsPerUTxOByte: 4310,
				MaxTxSize:        16384,
				MaxValueSize:     5000,
			},
		},
		IPFS: IPFSConfig{
			Providers:      []enum.IPFSProvider{enum.IPFSProviderNFTStorage, enum.IPFSProviderPinata, enum.IPFSProviderLocal},
			NFTStorageURL:  "https://api.nft.storage",
			NFTStorageKey:  "${NFT_STORAGE_API_KEY}",
			PinataURL:      "https://api.pinata.cloud",
			PinataAPIKey:   "${PINATA_API_KEY}",
			PinataSecret:   "${PINATA_SECRET}",
			Gateway:        "https://ipfs.io/ipfs",
			Timeout:        60 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Services: Services{
			HTTP: HTTPConfig{Host: "127.0.0.1", Port: 8080},
			KVS: KVSConfig{
				Type:   enum.KVStoreTypeBadger,
				Badger: BadgerConfig{Directory: "data/identity", Prefix: "identity"},
			},
			Nats: NatsConfig{SubjectPrefix: "identity"},
		},
	}
}
