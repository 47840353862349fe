package course

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artacademy/storefront/docstore"
	"github.com/sirupsen/logrus"
)

// Catalog mirrors the courses found at the root of the store and follows
// every change to them.
type Catalog struct {
	log logrus.FieldLogger

	mu        sync.RWMutex
	courses   []Course
	byID      map[string]int
	observers map[int]func([]Course)
	nextObs   int

	ready     chan struct{}
	readyOnce sync.Once
	cancel    func()
}

func NewCatalog(ctx context.Context, store docstore.Store, log logrus.FieldLogger) (*Catalog, error) {
	c := &Catalog{
		log:       log,
		byID:      make(map[string]int),
		observers: make(map[int]func([]Course)),
		ready:     make(chan struct{}),
	}

	cancel, err := store.Subscribe(ctx, "/", c.load)
	if err != nil {
		return nil, fmt.Errorf("subscribing to courses: %w", err)
	}
	c.cancel = cancel

	return c, nil
}

func (c *Catalog) load(snap docstore.Snapshot) {
	children, err := snap.Children()
	if err != nil {
		c.log.WithError(err).Error("listing courses")
		return
	}

	courses := make([]Course, 0, len(children))
	for _, ch := range children {
		crs, err := decode(ch)
		if err != nil {
			continue
		}
		courses = append(courses, crs)
	}

	byID := make(map[string]int, len(courses))
	for i, crs := range courses {
		byID[crs.ID] = i
	}

	c.mu.Lock()
	c.courses = courses
	c.byID = byID
	observers := make([]func([]Course), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })

	for _, fn := range observers {
		fn(copyCourses(courses))
	}
}

// Wait blocks until the first load from the store is done.
func (c *Catalog) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Catalog) List(f Filter) []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Course, 0, len(c.courses))
	for _, crs := range c.courses {
		if f.Match(crs) {
			out = append(out, crs)
		}
	}
	return out
}

func (c *Catalog) Get(id string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Categories lists the distinct non empty categories, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, crs := range c.courses {
		if crs.Category == "" || seen[crs.Category] {
			continue
		}
		seen[crs.Category] = true
		out = append(out, crs.Category)
	}
	sort.Strings(out)
	return out
}

// OnChange registers fn to receive the course list after every change until
// the returned func is called.
func (c *Catalog) OnChange(fn func([]Course)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Catalog) Close() {
	c.cancel()
}

func copyCourses(in []Course) []Course {
	out := make([]Course, len(in))
	copy(out, in)
	return out
}
