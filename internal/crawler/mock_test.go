package crawler

import (
	"errors"
	"sync"
	"time"
)

// MockCacheService is an in-memory stand-in for the rate-limit cache.
type MockCacheService struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{data: make(map[string][]byte)}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return value, nil
}

func (m *MockCacheService) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
