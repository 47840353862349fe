// Package session is the per-client key/value storage that survives between
// requests of the same client.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Storage keys shared by the packages that persist client state.
const (
	KeyUser       = "loggedInUser"
	KeyCart       = "cart-storage"
	KeyCurrency   = "currency"
	KeyOauthState = "oauthState"
)

type Storage interface {
	Get(ctx context.Context, key string) string
	Put(ctx context.Context, key string, val string)
	Remove(ctx context.Context, key string)
}

// Manager keeps client state in a cookie-keyed scs session. The request
// context must have passed through LoadAndSave.
type Manager struct {
	*scs.SessionManager
}

func New(lifetime time.Duration, secure bool) *Manager {
	sm := scs.New()
	sm.Lifetime = lifetime
	sm.Cookie.Name = "storefront_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure

	return &Manager{SessionManager: sm}
}

func (m *Manager) Get(ctx context.Context, key string) string {
	return m.GetString(ctx, key)
}

func (m *Manager) Put(ctx context.Context, key string, val string) {
	m.SessionManager.Put(ctx, key, val)
}

func (m *Manager) Remove(ctx context.Context, key string) {
	m.SessionManager.Remove(ctx, key)
}

// Memory is a single-client Storage held in process.
type Memory struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemory() *Memory {
	return &Memory{vals: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals[key]
}

func (m *Memory) Put(_ context.Context, key string, val string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = val
}

func (m *Memory) Remove(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
}
