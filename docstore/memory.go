package docstore

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Memory keeps the tree in process. It backs tests and single-instance
// deployments that do not need the data to outlive the process.
type Memory struct {
	mu     sync.RWMutex
	root   any
	closed bool
	hub    *hub
}

func NewMemory(log logrus.FieldLogger) *Memory {
	m := &Memory{}
	m.hub = newHub(log, m.Get)
	return m
}

func (m *Memory) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrClosed
	}

	v, ok := lookup(m.root, segs)
	return newSnapshot(segs, v, ok)
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	v, err := normalize(value)
	if err != nil {
		return err
	}

	return m.write(segs, func(root any) any { return assign(root, segs, v) })
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	writes, err := fieldWrites(segs, fields)
	if err != nil {
		return err
	}

	return m.write(segs, func(root any) any { return applyWrites(root, writes) })
}

func (m *Memory) write(segs []string, fn func(any) any) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.root = fn(m.root)
	m.mu.Unlock()

	m.hub.notify(segs)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return m.hub.subscribe(ctx, path, fn)
}

func (m *Memory) Close() error {
	m.hub.close()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
