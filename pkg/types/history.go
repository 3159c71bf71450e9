package types

// HistoryEntry references one transaction in an address's history.
// Confirmed entries carry their block height; mempool entries have
// height <= 0 and are listed last by the indexer.
type HistoryEntry struct {
	Height int64  `json:"height"`
	TxHash string `json:"tx_hash"`
}

// InMempool reports whether the entry is unconfirmed.
func (e HistoryEntry) InMempool() bool {
	return e.Height <= 0
}
