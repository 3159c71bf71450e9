package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/cashaddr"
	"github.com/Klingon-tech/bchgate/pkg/script"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// MutableRecord is one update of a mutable data pointer.
type MutableRecord struct {
	CID        string
	AuthAddr   string // owning address of the record's first input
	SourceTxID string
}

// recordCandidate carries the transaction a record was read from.
type recordCandidate struct {
	MutableRecord
	tx *types.Transaction
}

// DecodeMutablePointer reads the mutable data address (mda) from the
// OP_RETURN payload of the transaction named by documentHash. The mda is
// returned as found, without validation. A payload that is missing, not
// JSON, or lacks a string mda field yields fault.ErrMalformedPointer.
func (r *Resolver) DecodeMutablePointer(ctx context.Context, documentHash string) (string, error) {
	ctx, cancel, sc := r.begin(ctx, "pointer", documentHash)
	defer cancel()

	mda, err := r.decodePointer(ctx, documentHash)
	if err != nil {
		sc.finish(Result{}, err)
		return "", err
	}
	sc.finish(found(mda, documentHash), nil)
	return mda, nil
}

func (r *Resolver) decodePointer(ctx context.Context, documentHash string) (string, error) {
	txid, err := types.ParseTxID(documentHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fault.ErrInvalidTxID, err)
	}
	tx, err := r.txs.RawTransaction(ctx, txid)
	if err != nil {
		return "", scanError(ctx, err)
	}

	payload, ok := script.ExtractOpReturn(tx)
	if !ok {
		return "", fmt.Errorf("%w: no OP_RETURN output", fault.ErrMalformedPointer)
	}
	mda, ok := stringField(payload, "mda")
	if !ok {
		return "", fault.ErrMalformedPointer
	}
	return mda, nil
}

// ResolveMutableRecord returns the cid of the newest record in mda's
// history whose first input is owned by mda itself. Records posted to
// the address by anyone else are ignored, however recent.
func (r *Resolver) ResolveMutableRecord(ctx context.Context, mda string) (Result, error) {
	addr, err := r.codec.Normalize(mda)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", fault.ErrInvalidAddress, err)
	}

	ctx, cancel, sc := r.begin(ctx, "mutable", addr)
	defer cancel()

	res, err := r.resolveRecord(ctx, sc)
	sc.finish(res, err)
	return res, err
}

// ResolveMutableData decodes the pointer named by documentHash and
// resolves its current value. One timeout covers both steps. An mda
// that is not a valid address on this network is a malformed pointer.
func (r *Resolver) ResolveMutableData(ctx context.Context, documentHash string) (Result, error) {
	ctx, cancel, sc := r.begin(ctx, "mutable-data", documentHash)
	defer cancel()

	res, err := r.resolveData(ctx, sc, documentHash)
	sc.finish(res, err)
	return res, err
}

func (r *Resolver) resolveData(ctx context.Context, sc scanContext, documentHash string) (Result, error) {
	mda, err := r.decodePointer(ctx, documentHash)
	if err != nil {
		return Result{}, err
	}
	addr, err := r.codec.Normalize(mda)
	if err != nil {
		return Result{}, fmt.Errorf("%w: mda %q: %v", fault.ErrMalformedPointer, mda, err)
	}

	sc.target = addr
	sc.logger = sc.logger.With().Str("mda", addr).Logger()
	return r.resolveRecord(ctx, sc)
}

func (r *Resolver) resolveRecord(ctx context.Context, sc scanContext) (Result, error) {
	hist, err := r.history.History(ctx, sc.target)
	if err != nil {
		return Result{}, scanError(ctx, err)
	}
	if len(hist) == 0 {
		return noHistory, nil
	}
	sc.logger.Debug().Int("entries", len(hist)).Msg("Scanning history")

	s := scanner[*recordCandidate]{
		dir:       backward,
		lookahead: r.cfg.Lookahead,
		extract: func(ctx context.Context, entry types.HistoryEntry) ([]*recordCandidate, error) {
			tx, err := r.fetch(ctx, entry)
			if err != nil {
				return nil, err
			}
			payload, ok := script.ExtractOpReturn(tx)
			if !ok {
				return nil, nil
			}
			cid, ok := stringField(payload, "cid")
			if !ok {
				return nil, nil
			}
			return []*recordCandidate{{
				MutableRecord: MutableRecord{CID: cid, SourceTxID: tx.TxID},
				tx:            tx,
			}}, nil
		},
		accept: func(ctx context.Context, c *recordCandidate) (bool, error) {
			owner, err := r.firstInputAddress(ctx, c.tx)
			if err != nil {
				return false, err
			}
			if owner == "" {
				return false, nil
			}
			norm, err := r.codec.Normalize(owner)
			if err != nil {
				return false, nil
			}
			c.AuthAddr = norm
			if norm != sc.target {
				sc.logger.Debug().
					Str("txid", c.SourceTxID).
					Str("author", norm).
					Msg("Ignoring record not authored by mda")
				return false, nil
			}
			return true, nil
		},
	}

	c, ok, err := s.run(ctx, hist)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return exhausted, nil
	}
	return found(c.CID, c.SourceTxID), nil
}

// firstInputAddress returns the address owning the output spent by the
// first input of tx, or "" when it cannot be determined. Only the first
// input is considered. The spent output is fetched unless the input is
// already annotated with its address.
func (r *Resolver) firstInputAddress(ctx context.Context, tx *types.Transaction) (string, error) {
	if len(tx.Vin) == 0 {
		return "", nil
	}
	in := tx.Vin[0]
	if in.IsCoinbase() {
		return "", nil
	}
	if in.Address != "" {
		return in.Address, nil
	}

	txid, err := types.ParseTxID(in.TxID)
	if err != nil {
		return "", nil
	}
	parent, err := r.txs.RawTransaction(ctx, txid)
	if err != nil {
		return "", err
	}
	out, ok := outputAt(parent, in.Vout)
	if !ok {
		return "", nil
	}
	if addr := out.OwnerAddress(); addr != "" {
		return addr, nil
	}

	tokens, err := script.OutputTokens(out)
	if err != nil {
		return "", nil
	}
	kind, hash, ok := script.LockAddressHash(tokens)
	if !ok {
		return "", nil
	}
	t := cashaddr.P2PKH
	if kind == script.LockP2SH {
		t = cashaddr.P2SH
	}
	addr, err := r.codec.FromHash(t, hash)
	if err != nil {
		return "", nil
	}
	return addr, nil
}

// outputAt finds the output with index n, trusting the n field over
// the array position.
func outputAt(tx *types.Transaction, n uint32) (types.Output, bool) {
	for _, out := range tx.Vout {
		if out.N == n {
			return out, true
		}
	}
	return types.Output{}, false
}

// stringField parses payload as a JSON object and returns the named
// field. The field must be a JSON string; null and every other type
// are rejected.
func stringField(payload, name string) (string, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return "", false
	}
	s, ok := obj[name].(string)
	return s, ok
}
