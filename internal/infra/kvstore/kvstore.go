// Package kvstore provides string key/value stores used to persist small
// client-side state (pending checkout flags, device fingerprints) across
// redirects and reloads.
package kvstore

import (
	"net/url"
	"sync"
)

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MapStore is an in-memory Store, safe for concurrent use.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMapStore() *MapStore {
	return &MapStore{values: map[string]string{}}
}

func (m *MapStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MapStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MapStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Clear drops every key, like a browser wiping one storage area.
func (m *MapStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string]string{}
}

// URLStore keeps values as query parameters.
type URLStore struct {
	values url.Values
}

func NewURLStore(values url.Values) *URLStore {
	if values == nil {
		values = url.Values{}
	}
	return &URLStore{values: values}
}

func (u *URLStore) Get(key string) (string, bool) {
	if !u.values.Has(key) {
		return "", false
	}
	return u.values.Get(key), true
}

func (u *URLStore) Set(key, value string) { u.values.Set(key, value) }

func (u *URLStore) Remove(key string) { u.values.Del(key) }

func (u *URLStore) Values() url.Values { return u.values }

// AppendTo merges the stored parameters into rawURL's query string.
func (u *URLStore) AppendTo(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	for k, vs := range u.values {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
