package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/session"
)

// Manager keeps the client's cart in its session. Every mutation is written
// back before it returns.
type Manager struct {
	storage session.Storage
}

func NewManager(storage session.Storage) *Manager {
	return &Manager{storage: storage}
}

func (m *Manager) Load(ctx context.Context) (Cart, error) {
	c := Cart{Items: []Item{}}

	raw := m.storage.Get(ctx, session.KeyCart)
	if raw == "" {
		return c, nil
	}

	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("decoding cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

func (m *Manager) Save(ctx context.Context, c Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	m.storage.Put(ctx, session.KeyCart, string(b))
	return nil
}

func (m *Manager) Add(ctx context.Context, crs course.Course) (Cart, error) {
	return m.mutate(ctx, func(c *Cart) { c.Add(crs) })
}

func (m *Manager) Remove(ctx context.Context, courseID string) (Cart, error) {
	return m.mutate(ctx, func(c *Cart) { c.Remove(courseID) })
}

func (m *Manager) Clear(ctx context.Context) error {
	_, err := m.mutate(ctx, func(c *Cart) { c.Clear() })
	return err
}

func (m *Manager) mutate(ctx context.Context, fn func(*Cart)) (Cart, error) {
	c, err := m.Load(ctx)
	if err != nil {
		return Cart{}, err
	}

	fn(&c)

	if err := m.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}
