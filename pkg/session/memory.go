package session

import (
	"context"
	"sync"
)

// MemoryProvider keeps credentials in process memory. Used by tests and by
// the dashboard when started with a one-off token.
type MemoryProvider struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewMemoryProvider returns a provider seeded with c (which may be empty).
func NewMemoryProvider(c Credentials) *MemoryProvider {
	return &MemoryProvider{creds: c}
}

func (m *MemoryProvider) Load(_ context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.creds.Valid() {
		return Credentials{}, ErrNoCredentials
	}
	return m.creds, nil
}

func (m *MemoryProvider) Save(_ context.Context, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	return nil
}

func (m *MemoryProvider) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}
