package cardano

import "fmt"

// BlockResponse is the response from block query
type BlockResponse struct {
	Hash          string `json:"hash"`
	Height        uint64 `json:"height"`
	Slot          uint64 `json:"slot"`
	Epoch         uint64 `json:"epoch"`
	EpochSlot     uint64 `json:"epoch_slot"`
	Time          int64  `json:"time"`
	PreviousBlock string `json:"previous_block"`
	TxCount       int    `json:"tx_count"`
}

type Amount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// UTxO is an unspent output as listed by /addresses/{address}/utxos.
type UTxO struct {
	Address             string   `json:"address"`
	TxHash              string   `json:"tx_hash"`
	OutputIndex         uint32   `json:"output_index"`
	Amount              []Amount `json:"amount"`
	Block               string   `json:"block"`
	DataHash            string   `json:"data_hash"`
	InlineDatum         string   `json:"inline_datum"`
	ReferenceScriptHash string   `json:"reference_script_hash"`
}

// ProtocolParams holds the subset of epoch parameters used for fee and
// min-UTxO calculation. Blockfrost returns some of them as strings.
type ProtocolParams struct {
	Epoch            uint64 `json:"epoch"`
	MinFeeA          uint64 `json:"min_fee_a"`
	MinFeeB          uint64 `json:"min_fee_b"`
	MaxTxSize        uint64 `json:"max_tx_size"`
	MaxValSize       string `json:"max_val_size"`
	CoinsPerUTxOSize string `json:"coins_per_utxo_size"`
	KeyDeposit       string `json:"key_deposit"`
}

// Asset is the response of /assets/{unit}.
type Asset struct {
	Asset                   string         `json:"asset"`
	PolicyID                string         `json:"policy_id"`
	AssetName               string         `json:"asset_name"`
	Fingerprint             string         `json:"fingerprint"`
	Quantity                string         `json:"quantity"`
	InitialMintTxHash       string         `json:"initial_mint_tx_hash"`
	MintOrBurnCount         int            `json:"mint_or_burn_count"`
	OnchainMetadata         map[string]any `json:"onchain_metadata"`
	OnchainMetadataStandard string         `json:"onchain_metadata_standard"`
}

// ErrorResponse is the Blockfrost error body.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Err        string `json:"error"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("blockfrost %d %s: %s", e.StatusCode, e.Err, e.Message)
}
