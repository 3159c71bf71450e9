package resolver

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/script"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// keyCandidate is a public key revealed by one input.
type keyCandidate struct {
	pub  []byte
	txid string
}

// ResolvePublicKey recovers the public key controlling address by
// scanning its history oldest first for an input whose unlocking script
// reveals a key hashing to the address. The first such key wins.
//
// Only the shape of the unlocking script is checked; the signature is
// not verified against the spent output.
func (r *Resolver) ResolvePublicKey(ctx context.Context, address string) (Result, error) {
	addr, err := r.codec.Normalize(address)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", fault.ErrInvalidAddress, err)
	}

	ctx, cancel, sc := r.begin(ctx, "pubkey", addr)
	defer cancel()

	res, err := r.resolvePublicKey(ctx, sc)
	sc.finish(res, err)
	return res, err
}

func (r *Resolver) resolvePublicKey(ctx context.Context, sc scanContext) (Result, error) {
	hist, err := r.history.History(ctx, sc.target)
	if err != nil {
		return Result{}, scanError(ctx, err)
	}
	if len(hist) == 0 {
		return noHistory, nil
	}
	sc.logger.Debug().Int("entries", len(hist)).Msg("Scanning history")

	s := scanner[keyCandidate]{
		dir:       forward,
		lookahead: r.cfg.Lookahead,
		extract: func(ctx context.Context, entry types.HistoryEntry) ([]keyCandidate, error) {
			tx, err := r.fetch(ctx, entry)
			if err != nil {
				return nil, err
			}
			return unlockKeys(tx), nil
		},
		accept: func(ctx context.Context, c keyCandidate) (bool, error) {
			derived, err := r.codec.PubKeyToAddress(c.pub)
			if err != nil {
				return false, nil
			}
			return derived == sc.target, nil
		},
	}

	c, ok, err := s.run(ctx, hist)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return exhausted, nil
	}
	return found(hex.EncodeToString(c.pub), c.txid), nil
}

// unlockKeys returns the keys revealed by the inputs of tx, in input
// order. Inputs that do not decode or are not single-signature unlocks
// are skipped.
func unlockKeys(tx *types.Transaction) []keyCandidate {
	var keys []keyCandidate
	for _, in := range tx.Vin {
		if in.IsCoinbase() {
			continue
		}
		tokens, err := script.InputTokens(in)
		if err != nil {
			continue
		}
		pub, ok := script.UnlockPubKey(tokens)
		if !ok {
			continue
		}
		keys = append(keys, keyCandidate{pub: pub, txid: tx.TxID})
	}
	return keys
}

// fetch loads the transaction of a history entry. A malformed txid in
// the history is a fault of the indexer, not of the caller.
func (r *Resolver) fetch(ctx context.Context, entry types.HistoryEntry) (*types.Transaction, error) {
	txid, err := types.ParseTxID(entry.TxHash)
	if err != nil {
		return nil, fault.Transient("indexer history", err)
	}
	return r.txs.RawTransaction(ctx, txid)
}

// finish logs the outcome of a call.
func (sc scanContext) finish(res Result, err error) {
	elapsed := time.Since(sc.started)
	if err != nil {
		ev := sc.logger.Warn()
		if fault.IsErrInvalid(err) || fault.IsErrMalformed(err) {
			ev = sc.logger.Debug()
		}
		ev.Err(err).Dur("elapsed", elapsed).Msg("Resolution failed")
		return
	}
	sc.logger.Debug().
		Str("status", res.Status.String()).
		Str("txid", res.TxID).
		Dur("elapsed", elapsed).
		Msg("Resolution finished")
}
