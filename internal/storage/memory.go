package storage

import "sync"

// Memory is an in-process KV. SaveErr, when set, is returned by every Save
// and nothing is stored.
type Memory struct {
	mu      sync.Mutex
	data    map[string]string
	saves   int
	SaveErr error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Load(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data[key] = value
	m.saves++
	return nil
}

// Saves returns how many successful writes happened.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
