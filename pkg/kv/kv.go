// Package kv provides the string key-value storage behind durable and
// session state. Values are opaque strings, usually JSON documents.
package kv

import (
	"sync"
)

// Store is a simple get/set/contains key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Contains reports whether key is present.
	Contains(key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Compile-time interface checks.
var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
)

// Memory is an in-process Store. Its contents end with the process,
// which makes it suitable as session storage.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Contains implements Store.
func (m *Memory) Contains(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

// Delete implements Store.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
