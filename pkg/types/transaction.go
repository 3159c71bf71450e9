package types

// Transaction is the verbose transaction form returned by getrawtransaction.
type Transaction struct {
	TxID          string   `json:"txid"`
	Hash          string   `json:"hash,omitempty"`
	Version       int32    `json:"version"`
	Size          int      `json:"size,omitempty"`
	LockTime      uint32   `json:"locktime"`
	Vin           []Input  `json:"vin"`
	Vout          []Output `json:"vout"`
	BlockHash     string   `json:"blockhash,omitempty"`
	Confirmations int64    `json:"confirmations,omitempty"`
	Time          int64    `json:"time,omitempty"`
	BlockTime     int64    `json:"blocktime,omitempty"`
}

// Input is a transaction input. Coinbase inputs carry no scriptSig.
// Address is only filled in by indexers that annotate the spent output.
type Input struct {
	TxID      string    `json:"txid,omitempty"`
	Vout      uint32    `json:"vout"`
	Coinbase  string    `json:"coinbase,omitempty"`
	ScriptSig ScriptSig `json:"scriptSig"`
	Sequence  uint32    `json:"sequence"`
	Address   string    `json:"address,omitempty"`
}

// IsCoinbase reports whether the input is a coinbase input.
func (in Input) IsCoinbase() bool {
	return in.Coinbase != "" || in.TxID == ""
}

// ScriptSig is an unlocking script as printed by the node.
type ScriptSig struct {
	Asm string `json:"asm"`
	Hex string `json:"hex"`
}

// Output is a transaction output.
type Output struct {
	Value        float64      `json:"value"`
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// ScriptPubKey is a locking script as printed by the node.
// Older nodes report "addresses", newer ones a single "address".
type ScriptPubKey struct {
	Asm       string   `json:"asm"`
	Hex       string   `json:"hex"`
	ReqSigs   int      `json:"reqSigs,omitempty"`
	Type      string   `json:"type,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// OwnerAddress returns the address the node attributes to the output, or "".
func (o Output) OwnerAddress() string {
	if len(o.ScriptPubKey.Addresses) > 0 {
		return o.ScriptPubKey.Addresses[0]
	}
	return o.ScriptPubKey.Address
}
