package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local TTL cache. Expired entries are dropped lazily on read
// and by a periodic sweep.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewMemory(sweepEvery time.Duration) *Memory {
	m := &Memory{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepEvery > 0 {
		m.wg.Add(1)
		go m.sweepLoop(sweepEvery)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the sweep goroutine.
func (m *Memory) Close() {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}

func (m *Memory) sweepLoop(every time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
