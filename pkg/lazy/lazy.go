// Package lazy provides a small deferred-computation layer for chunked array
// buffers. Bulk transforms (reprojection, coarsening) are expressed as
// deferred buffers whose compute closures pull their inputs on demand; nothing
// runs until a caller crosses the explicit Materialize boundary or asks a
// buffer for its values.
package lazy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel buffer materialization when the caller
// does not specify a limit.
const DefaultConcurrency = 4

// Compute produces the concrete values of a deferred buffer.
type Compute func(ctx context.Context) ([]float64, error)

// Buffer is a float64 array that may be deferred. A deferred buffer holds a
// compute closure instead of data; the first Values call runs it exactly once
// and memoizes the result (or the error). Buffers are safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	done    bool
	data    []float64
	err     error
	compute Compute
}

// FromValues wraps concrete data in an already-materialized buffer.
func FromValues(data []float64) *Buffer {
	return &Buffer{done: true, data: data}
}

// Defer creates a buffer whose values are produced by compute on first use.
func Defer(compute Compute) *Buffer {
	return &Buffer{compute: compute}
}

// Values forces the buffer and returns its data. The compute closure runs at
// most once; subsequent calls return the memoized result. Callers must not
// mutate the returned slice.
func (b *Buffer) Values(ctx context.Context) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return b.data, b.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.data, b.err = b.compute(ctx)
	b.done = true
	b.compute = nil
	return b.data, b.err
}

// Materialized reports whether the buffer has already been forced.
func (b *Buffer) Materialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Materialize forces every buffer, running up to limit computations in
// parallel. A limit <= 0 uses DefaultConcurrency. The first error cancels the
// remaining work.
func Materialize(ctx context.Context, limit int, bufs ...*Buffer) error {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, b := range bufs {
		b := b
		g.Go(func() error {
			_, err := b.Values(gctx)
			return err
		})
	}

	return g.Wait()
}
