package constant

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	LovelacePerADA = 1_000_000

	// CIP-25 NFT metadata label
	NFTMetadataLabel = 721

	DefaultAssetNamePrefix = "CardanoIdentity"
	DefaultTTLBufferSlots  = 7200
	DefaultOutputLovelace  = 2_000_000
	DefaultMediaType       = "image/jpeg"
	DefaultMetadataVersion = "1.0"

	IdentityNFTKeyPrefix = "identity_nft/"
	IPFSBlobKeyPrefix    = "ipfs/"

	MintedEventSubject = "identity.minted"
)
