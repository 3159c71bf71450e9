package resolver

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/cashaddr"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

var testCodec = cashaddr.NewCodec(cashaddr.MainNet)

// fakeHistory serves fixed histories.
type fakeHistory struct {
	entries map[string][]types.HistoryEntry
	err     error
}

func (f *fakeHistory) History(ctx context.Context, address string) ([]types.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[address], nil
}

// fakeTxs serves fixed transactions and counts fetches.
type fakeTxs struct {
	mu      sync.Mutex
	txs     map[string]*types.Transaction
	errs    map[string]error
	delays  map[string]time.Duration
	block   map[string]bool
	fetched []string
}

func newFakeTxs() *fakeTxs {
	return &fakeTxs{
		txs:    make(map[string]*types.Transaction),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
		block:  make(map[string]bool),
	}
}

func (f *fakeTxs) add(txs ...*types.Transaction) {
	for _, tx := range txs {
		f.txs[tx.TxID] = tx
	}
}

func (f *fakeTxs) RawTransaction(ctx context.Context, txid string) (*types.Transaction, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, txid)
	tx, err := f.txs[txid], f.errs[txid]
	delay, block := f.delays[txid], f.block[txid]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fault.Transient("getrawtransaction", fmt.Errorf("no such transaction %s", txid))
	}
	return tx, nil
}

func (f *fakeTxs) fetchCount(txid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.fetched {
		if id == txid {
			n++
		}
	}
	return n
}

func (f *fakeTxs) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// txid returns a deterministic transaction id.
func txid(n int) string {
	return fmt.Sprintf("%064x", n)
}

// testKey is a key pair with its P2PKH address.
type testKey struct {
	pub  []byte
	addr string
}

func newKey(t *testing.T) testKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub := priv.PubKey().SerializeCompressed()
	addr, err := testCodec.PubKeyToAddress(pub)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}
	return testKey{pub: pub, addr: addr}
}

func (k testKey) hex() string {
	return hex.EncodeToString(k.pub)
}

func push(data []byte) []byte {
	return append([]byte{byte(len(data))}, data...)
}

// p2pkhUnlock builds <sig> <pub> with a dummy 71-byte signature.
func p2pkhUnlock(pub []byte) string {
	sig := bytes.Repeat([]byte{0x30}, 70)
	sig = append(sig, 0x41) // SIGHASH_ALL|FORKID
	return hex.EncodeToString(append(push(sig), push(pub)...))
}

// spendTx spends one output per key, each from a distinct parent.
func spendTx(id string, keys ...testKey) *types.Transaction {
	tx := &types.Transaction{TxID: id, Version: 2}
	for i, k := range keys {
		tx.Vin = append(tx.Vin, types.Input{
			TxID:      txid(9000 + i),
			Vout:      uint32(i),
			ScriptSig: types.ScriptSig{Hex: p2pkhUnlock(k.pub)},
		})
	}
	tx.Vout = []types.Output{{Value: 0.001, N: 0}}
	return tx
}

// fundingTx pays its output 0 to addr.
func fundingTx(id, addr string) *types.Transaction {
	return &types.Transaction{
		TxID: id,
		Vout: []types.Output{{
			Value:        0.01,
			N:            0,
			ScriptPubKey: types.ScriptPubKey{Addresses: []string{addr}, Type: "pubkeyhash"},
		}},
	}
}

// recordTx carries payload in an OP_RETURN output and spends output 0 of funder.
func recordTx(id, funder, payload string) *types.Transaction {
	script := append([]byte{0x6a}, push([]byte(payload))...)
	return &types.Transaction{
		TxID: id,
		Vin: []types.Input{{
			TxID:      funder,
			Vout:      0,
			ScriptSig: types.ScriptSig{Hex: "00"},
		}},
		Vout: []types.Output{
			{Value: 0, N: 0, ScriptPubKey: types.ScriptPubKey{Hex: hex.EncodeToString(script), Type: "nulldata"}},
			{Value: 0.0001, N: 1},
		},
	}
}

func entries(ids ...string) []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(ids))
	for i, id := range ids {
		out[i] = types.HistoryEntry{Height: int64(700000 + i), TxHash: id}
	}
	return out
}
