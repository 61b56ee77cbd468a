package action

import (
	"context"
	"sync"

	"github.com/mineclover/context-action-sub008/session"
)

// Handle tracks one asynchronous dispatch. It resolves exactly once.
type Handle struct {
	done chan struct{}

	once sync.Once
	res  *session.Result
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) resolve(res *session.Result, err error) {
	h.once.Do(func() {
		h.res = res
		h.err = err
		close(h.done)
	})
}

// Done returns a channel closed when the dispatch terminates.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the dispatch result and error. It returns nil, nil
// while the dispatch is still running; wait on Done or use Wait for a
// blocking read.
func (h *Handle) Result() (*session.Result, error) {
	select {
	case <-h.done:
		return h.res, h.err
	default:
		return nil, nil
	}
}

// Wait blocks until the dispatch terminates or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*session.Result, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
