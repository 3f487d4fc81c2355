package events

// MintedEvent is published after a mint transaction is accepted for submission.
type MintedEvent struct {
	ID        string `json:"id"`
	Network   string `json:"network"`
	TxHash    string `json:"tx_hash"`
	PolicyID  string `json:"policy_id"`
	AssetName string `json:"asset_name"`
	Unit      string `json:"unit"`
	Owner     string `json:"owner"`
	Image     string `json:"image"`
	Timestamp int64  `json:"timestamp"`
}
