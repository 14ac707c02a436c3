package scanner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn over files using N goroutines.
// workers=0 means runtime.NumCPU(). workers=1 is sequential.
// Cancelling ctx stops scheduling further files; files already started run
// to completion. The returned error is ctx.Err() after a cancellation.
func forEach(ctx context.Context, files []file, workers int, fn func(file)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
