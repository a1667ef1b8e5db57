package whisper

import (
	"context"
	"iter"
)

// processFunc runs one decode, handing each segment to emit as it is
// recognized. emit reports false once the consumer has gone away; process
// should then stop at its next opportunity.
type processFunc func(ctx context.Context, emit func(Segment) bool) error

type result struct {
	seg Segment
	err error
}

// streamSegments runs process on its own goroutine and turns its callbacks
// into a pull sequence. Breaking out of the range cancels the context seen by
// process and waits for it to return. A process error is yielded last unless
// the run was cancelled; a cancelled parent ctx is yielded as ctx.Err().
func streamSegments(ctx context.Context, process processFunc) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		results := make(chan result)
		go func() {
			defer close(results)
			send := func(r result) bool {
				if runCtx.Err() != nil {
					return false
				}
				select {
				case results <- r:
					return true
				case <-runCtx.Done():
					return false
				}
			}
			err := process(runCtx, func(seg Segment) bool { return send(result{seg: seg}) })
			if err != nil && runCtx.Err() == nil {
				send(result{err: err})
			}
		}()

		for r := range results {
			if !yield(r.seg, r.err) {
				cancel()
				// Drain so process can release the model.
				for range results {
				}
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(Segment{}, err)
		}
	}
}
