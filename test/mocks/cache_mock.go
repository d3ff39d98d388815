package mocks

import (
	"context"
	"sync"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

// MockAvailabilityCache is an in-memory AvailabilityCache with call counters
// so tests can assert hit, fill and invalidation behavior.
type MockAvailabilityCache struct {
	mu      sync.Mutex
	entries map[string][]ports.RoomAvailability

	Hits        int
	Misses      int
	Sets        int
	Invalidated []string
}

var _ ports.AvailabilityCache = (*MockAvailabilityCache)(nil)

func NewMockAvailabilityCache() *MockAvailabilityCache {
	return &MockAvailabilityCache{
		entries: make(map[string][]ports.RoomAvailability),
	}
}

func (m *MockAvailabilityCache) GetRoomAvailability(ctx context.Context, hostelID string) ([]ports.RoomAvailability, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms, ok := m.entries[hostelID]
	if ok {
		m.Hits++
	} else {
		m.Misses++
	}
	return rooms, ok
}

func (m *MockAvailabilityCache) SetRoomAvailability(ctx context.Context, hostelID string, rooms []ports.RoomAvailability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[hostelID] = rooms
	m.Sets++
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, hostelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, hostelID)
	m.Invalidated = append(m.Invalidated, hostelID)
}
