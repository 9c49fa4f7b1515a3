package extraction

import (
	"context"
	"sync"
)

// MockExtractor returns canned results per library and counts calls.
type MockExtractor struct {
	mu      sync.Mutex
	Results map[string]Result
	Default Result
	Calls   map[string]int
}

func (m *MockExtractor) Extract(ctx context.Context, lib string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[lib]++
	if r, ok := m.Results[lib]; ok {
		return r
	}
	return m.Default
}

func (m *MockExtractor) CallCount(lib string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[lib]
}
