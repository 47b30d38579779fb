package combinator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultTimeout = 10 * time.Second

var ErrTimeout = errors.New("combination search timed out")

type result struct {
	combinations [][]uint64
	err          error
}

// CombineContext runs Combine on its own goroutine and gives up when ctx is done first.
// The search itself is not interrupted, its result is dropped once it finishes.
func CombineContext(ctx context.Context, combinator Combinator, fixed []Fixed, required, selected []string) ([][]uint64, error) {
	done := make(chan result, 1) // Buffered so the search goroutine never blocks after a timeout
	go func() {
		combinations, err := combinator.Combine(fixed, required, selected)
		done <- result{combinations: combinations, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	case r := <-done:
		return r.combinations, r.err
	}
}
