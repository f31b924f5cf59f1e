package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e *entry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Memory is an in-process Cache. Entries with a zero TTL never expire.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stop    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory cache with background expiry sweeps.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired() {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := &entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close stops the background sweep goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if e.expired() {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}
