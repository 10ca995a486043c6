package setup

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend. A positive quota caps the summed
// size of keys and values in bytes.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
	quota int
	used  int
}

// NewMemoryBackend returns an empty backend; quota <= 0 means unlimited.
func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string), quota: quota}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return "", ErrNotExist
	}
	return v, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + len(key) + len(value)
	if old, ok := m.items[key]; ok {
		used -= len(key) + len(old)
	}
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.items[key] = value
	m.used = used
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// UnavailableBackend stands in when no storage could be opened.
type UnavailableBackend struct{}

func (UnavailableBackend) Get(context.Context, string) (string, error) { return "", ErrUnavailable }
func (UnavailableBackend) Set(context.Context, string, string) error { return ErrUnavailable }
func (UnavailableBackend) Remove(context.Context, string) error { return ErrUnavailable }
func (UnavailableBackend) Keys(context.Context, string) ([]string, error) { return nil, ErrUnavailable }
func (UnavailableBackend) Len(context.Context) (int, error) { return 0, ErrUnavailable }
