// Package parallel runs a function over a sequence with bounded concurrency.
package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map calls mapFunc for every item of seq, at most limit calls run at once. Zero
// or negative limit means no limit. Results are yielded in completion order.
//
// A canceled context stops scheduling of further items. Calls already running
// get the canceled context and their results are still yielded.
//
//	for res, err := range parallel.Map(ctx, 4, slices.Values(jobs), run) {}
func Map[E, D any](ctx context.Context, limit int, seq iter.Seq[E], mapFunc func(context.Context, E) (D, error)) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		mapped := make(chan result[D])

		var g errgroup.Group
		if limit > 0 {
			g.SetLimit(limit + 1) // +1 for the feeder
		}
		g.Go(func() error {
			for item := range seq {
				if ctx.Err() != nil {
					return nil
				}
				g.Go(func() error {
					if ctx.Err() != nil {
						return nil
					}
					d, err := mapFunc(ctx, item)
					mapped <- result[D]{d: d, e: err}
					return nil
				})
			}
			return nil
		})
		go func() {
			_ = g.Wait()
			close(mapped)
		}()

		defer func() {
			cancel()
			for range mapped {
			}
		}()
		for r := range mapped {
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}
