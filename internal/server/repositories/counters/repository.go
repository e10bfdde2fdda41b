// Package counters allocates per-collection ids. Values only ever grow:
// clearing a collection never resets its counter.
package counters

import "context"

type Repository interface {
	// Next increments the named counter and returns the new value.
	Next(ctx context.Context, name string) (int64, error)
}
