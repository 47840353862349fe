package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background runs fire-and-forget tasks whose failure must never reach the
// request that started them.
type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Run starts fn unless Shutdown was called, in which case fn is dropped.
func (b *Background) Run(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.log.Warn("background task dropped during shutdown")
		return
	}
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", fmt.Sprint(rec)).Error("background task panicked")
			}
		}()

		fn()
	}()
}

// Shutdown refuses new tasks and waits for running ones until ctx is done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
