package routes

import (
	"sync"
)

// Memory is an in-process store used by tests and the simulator's
// default configuration.
type Memory struct {
	mu      sync.RWMutex
	records []RouteRecord
	nextID  uint
}

func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) Init() error { return nil }

func (m *Memory) Save(record *RouteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == 0 {
		record.ID = m.nextID
		m.nextID++
	} else if record.ID >= m.nextID {
		m.nextID = record.ID + 1
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *Memory) All() ([]RouteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RouteRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
