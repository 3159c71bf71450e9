package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// direction selects which end of a history a scan starts from.
type direction uint8

const (
	forward  direction = iota // oldest first
	backward                  // newest first
)

func (d direction) String() string {
	if d == backward {
		return "backward"
	}
	return "forward"
}

// scanner walks a history in one direction and returns the first
// accepted candidate. extract turns one history entry into zero or more
// candidates, in the order they should be tried. accept decides whether
// a candidate qualifies. Both may touch the network; errors from either
// abort the scan.
//
// With lookahead > 1 up to lookahead entries are processed concurrently,
// but their outcomes are consumed strictly in scan order: entry i is
// never committed until every entry before it has been rejected.
type scanner[R any] struct {
	dir       direction
	lookahead int
	extract   func(ctx context.Context, entry types.HistoryEntry) ([]R, error)
	accept    func(ctx context.Context, candidate R) (bool, error)
}

// outcome is the processed state of one history entry.
type outcome[R any] struct {
	value   R
	matched bool
	err     error
}

// run scans entries and reports the first accepted candidate.
// ok is false when every entry was rejected.
func (s scanner[R]) run(ctx context.Context, entries []types.HistoryEntry) (value R, ok bool, err error) {
	order := make([]int, len(entries))
	for i := range order {
		if s.dir == backward {
			order[i] = len(entries) - 1 - i
		} else {
			order[i] = i
		}
	}

	if s.lookahead <= 1 {
		for _, idx := range order {
			if err := fault.FromContext(ctx); err != nil {
				return value, false, err
			}
			o := s.step(ctx, entries[idx])
			if o.err != nil || o.matched {
				return o.value, o.matched, o.err
			}
		}
		return value, false, nil
	}
	return s.runWindow(ctx, entries, order)
}

// runWindow is run with a bounded prefetch window.
func (s scanner[R]) runWindow(ctx context.Context, entries []types.HistoryEntry, order []int) (value R, ok bool, err error) {
	ctx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	defer func() {
		cancel()
		g.Wait()
	}()

	slots := make([]chan outcome[R], len(order))
	launch := func(pos int) {
		if pos >= len(order) {
			return
		}
		ch := make(chan outcome[R], 1)
		slots[pos] = ch
		entry := entries[order[pos]]
		g.Go(func() error {
			ch <- s.step(ctx, entry)
			return nil
		})
	}

	for pos := 0; pos < s.lookahead; pos++ {
		launch(pos)
	}

	for pos := range order {
		var o outcome[R]
		select {
		case o = <-slots[pos]:
		case <-ctx.Done():
			return value, false, fault.FromContext(ctx)
		}
		if o.err != nil || o.matched {
			return o.value, o.matched, o.err
		}
		launch(pos + s.lookahead)
	}
	return value, false, nil
}

// step extracts and checks the candidates of a single entry.
func (s scanner[R]) step(ctx context.Context, entry types.HistoryEntry) outcome[R] {
	candidates, err := s.extract(ctx, entry)
	if err != nil {
		return outcome[R]{err: scanError(ctx, err)}
	}
	for _, c := range candidates {
		ok, err := s.accept(ctx, c)
		if err != nil {
			return outcome[R]{err: scanError(ctx, err)}
		}
		if ok {
			return outcome[R]{value: c, matched: true}
		}
	}
	return outcome[R]{}
}

// scanError reports an expired scan as a timeout, whatever error the
// collaborator surfaced for it.
func scanError(ctx context.Context, err error) error {
	if fault.IsErrTimeout(err) {
		return err
	}
	if ctxErr := fault.FromContext(ctx); ctxErr != nil {
		return ctxErr
	}
	return err
}
