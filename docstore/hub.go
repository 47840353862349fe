package docstore

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type getFunc func(ctx context.Context, path string) (Snapshot, error)

// hub fans change notifications out to subscriptions. Each subscription owns
// a goroutine that re-reads its path when woken, so a burst of writes costs
// at most one extra read per subscriber.
type hub struct {
	log logrus.FieldLogger
	get getFunc

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	segs []string
	path string
	fn   func(Snapshot)
	wake chan struct{}
	stop chan struct{}
	once sync.Once
}

func (s *subscription) halt() {
	s.once.Do(func() { close(s.stop) })
}

func newHub(log logrus.FieldLogger, get getFunc) *hub {
	return &hub{
		log:  log,
		get:  get,
		subs: make(map[*subscription]struct{}),
	}
}

func (h *hub) subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	s := &subscription{
		segs: segs,
		path: joinPath(segs),
		fn:   fn,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[s] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(ctx, s)

	return func() { h.remove(s) }, nil
}

func (h *hub) run(ctx context.Context, s *subscription) {
	defer h.wg.Done()
	defer h.remove(s)

	for {
		snap, err := h.get(ctx, s.path)
		switch {
		case err == nil:
			s.fn(snap)
		case ctx.Err() != nil:
			return
		default:
			h.log.WithError(err).WithField("path", s.path).Error("reading subscribed path")
		}

		select {
		case <-s.wake:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.halt()
}

// notify wakes every subscription whose path overlaps the changed path.
func (h *hub) notify(changed []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !overlaps(changed, s.segs) {
			continue
		}
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (h *hub) notifyAll() {
	h.notify(nil)
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	for s := range h.subs {
		s.halt()
	}
	h.mu.Unlock()

	h.wg.Wait()
}
