package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryStorage is an in-memory deliverable store.
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	// Fail makes every Put return an error.
	Fail bool
	// FailAfter lets that many Puts succeed before failing, when positive.
	FailAfter int
	puts      int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: map[string][]byte{}}
}

func (m *MemoryStorage) Put(ctx context.Context, bucket, path string, body io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.Fail || (m.FailAfter > 0 && m.puts > m.FailAfter) {
		return "", errors.New("storage unavailable")
	}
	m.Objects[bucket+"/"+path] = b
	return "https://cdn.test/" + bucket + "/" + path, nil
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

func (m *MemoryStorage) Remove(bucket string, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.Objects, bucket+"/"+p)
	}
	return nil
}
