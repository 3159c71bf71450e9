// Package resolver recovers chain-anchored data by scanning address
// histories: the public key controlling an address, and the current
// value of a mutable data pointer.
//
// A Resolver holds only its collaborators and settings. All state of a
// resolution lives in a scanContext created per call, so one Resolver
// may serve any number of concurrent calls.
package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	klog "github.com/Klingon-tech/bchgate/internal/log"
	"github.com/Klingon-tech/bchgate/pkg/cashaddr"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// HistoryProvider lists the transactions touching an address, ascending
// by confirmation with mempool entries last.
type HistoryProvider interface {
	History(ctx context.Context, address string) ([]types.HistoryEntry, error)
}

// TxFetcher fetches the verbose form of a transaction.
type TxFetcher interface {
	RawTransaction(ctx context.Context, txid string) (*types.Transaction, error)
}

// AddressCodec normalizes and derives addresses for one network.
type AddressCodec interface {
	Normalize(addr string) (string, error)
	PubKeyToAddress(pubKey []byte) (string, error)
	FromHash(t cashaddr.Type, hash []byte) (string, error)
}

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultLookahead = 1
)

// Config holds resolver settings.
type Config struct {
	// Timeout bounds the wall-clock time of one resolution call.
	Timeout time.Duration
	// Lookahead is the number of history entries processed concurrently.
	// 1 scans strictly one entry at a time.
	Lookahead int
}

// Resolver runs public-key and mutable-pointer resolutions.
type Resolver struct {
	history HistoryProvider
	txs     TxFetcher
	codec   AddressCodec
	cfg     Config
}

// New creates a Resolver.
func New(history HistoryProvider, txs TxFetcher, codec AddressCodec, cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Lookahead < 1 {
		cfg.Lookahead = DefaultLookahead
	}
	return &Resolver{
		history: history,
		txs:     txs,
		codec:   codec,
		cfg:     cfg,
	}
}

// Config returns the effective settings.
func (r *Resolver) Config() Config {
	return r.cfg
}

// scanContext is the immutable per-call state of one resolution.
type scanContext struct {
	id      string
	target  string // normalized address the scan is about
	started time.Time
	logger  zerolog.Logger
}

// begin bounds ctx by the configured timeout and creates the call state.
// The request id from ctx is reused when present.
func (r *Resolver) begin(ctx context.Context, op, target string) (context.Context, context.CancelFunc, scanContext) {
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	sc := scanContext{
		id:      id,
		target:  target,
		started: time.Now(),
		logger: klog.Resolver.With().
			Str("op", op).
			Str("req", id).
			Str("target", target).
			Logger(),
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	return ctx, cancel, sc
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
