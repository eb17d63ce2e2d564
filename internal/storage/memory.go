package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps objects in process memory. Used for tests and local
// development without an object store.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]UploadInput
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]UploadInput)}
}

// Put records the payload under key.
func (m *MemoryStore) Put(_ context.Context, key string, in UploadInput) (StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; exists {
		return StoredObject{}, fmt.Errorf("object %s already exists", key)
	}
	m.objects[key] = in
	return StoredObject{
		URL:      "memory://" + key,
		FileName: in.FileName,
		MimeType: in.MimeType,
		Size:     int64(len(in.Body)),
	}, nil
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
