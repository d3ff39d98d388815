package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

// MockAllocationRepository is an in-memory AllocationRepository that enforces
// the same invariants as the SQL adapter: occupancy tracks active allocations,
// a bed holds at most one student, a student holds at most one active
// allocation. Mutations are all-or-nothing, so conflict paths behave the way
// they do against Postgres.
type MockAllocationRepository struct {
	mu          sync.Mutex
	rooms       map[string]*domain.Room
	allocations map[string]*domain.Allocation

	// Payloads records every outbox payload handed to a mutating call.
	Payloads [][]byte

	// failNext, when set, aborts the next mutating call before any change.
	failNext error
}

var _ ports.AllocationRepository = (*MockAllocationRepository)(nil)

func NewMockAllocationRepository() *MockAllocationRepository {
	return &MockAllocationRepository{
		rooms:       make(map[string]*domain.Room),
		allocations: make(map[string]*domain.Allocation),
	}
}

// AddRoom seeds a room. Occupancy is recomputed from the ledger, so seed
// rooms before allocations.
func (m *MockAllocationRepository) AddRoom(room domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := room
	m.rooms[room.ID] = &r
}

// FailNextMutation makes the next mutating call return err without changes.
func (m *MockAllocationRepository) FailNextMutation(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockAllocationRepository) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MockAllocationRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

func (m *MockAllocationRepository) ListRooms(ctx context.Context, hostelID string) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []domain.Room
	for _, room := range m.rooms {
		if room.HostelID == hostelID {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (m *MockAllocationRepository) GetAllocation(ctx context.Context, allocationID string) (*domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alloc, ok := m.allocations[allocationID]
	if !ok {
		return nil, domain.ErrAllocationNotFound
	}
	copied := *alloc
	return &copied, nil
}

func (m *MockAllocationRepository) ActiveAllocationsForRoom(ctx context.Context, roomID string) ([]domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeForRoomLocked(roomID), nil
}

func (m *MockAllocationRepository) activeForRoomLocked(roomID string) []domain.Allocation {
	var active []domain.Allocation
	for _, alloc := range m.allocations {
		if alloc.RoomID == roomID && alloc.Status == domain.AllocationActive {
			active = append(active, *alloc)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].BedNumber < active[j].BedNumber })
	return active
}

func (m *MockAllocationRepository) ActiveAllocationForStudent(ctx context.Context, studentID string) (*domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alloc := m.activeForStudentLocked(studentID)
	if alloc == nil {
		return nil, domain.ErrNoActiveAllocation
	}
	copied := *alloc
	return &copied, nil
}

func (m *MockAllocationRepository) activeForStudentLocked(studentID string) *domain.Allocation {
	for _, alloc := range m.allocations {
		if alloc.StudentID == studentID && alloc.Status == domain.AllocationActive {
			return alloc
		}
	}
	return nil
}

func (m *MockAllocationRepository) AllocationHistoryForStudent(ctx context.Context, studentID string) ([]domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []domain.Allocation
	for _, alloc := range m.allocations {
		if alloc.StudentID == studentID {
			history = append(history, *alloc)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	return history, nil
}

func (m *MockAllocationRepository) CreateAllocation(ctx context.Context, alloc domain.Allocation, outboxPayload []byte) (*domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	created, err := m.createLocked(alloc)
	if err != nil {
		return nil, err
	}
	m.Payloads = append(m.Payloads, outboxPayload)
	copied := *created
	return &copied, nil
}

func (m *MockAllocationRepository) createLocked(alloc domain.Allocation) (*domain.Allocation, error) {
	room, ok := m.rooms[alloc.RoomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrRoomInactive
	}
	if !domain.CanAccept(room) {
		return nil, domain.ErrRoomFull
	}
	if !domain.ValidBed(room, alloc.BedNumber) {
		return nil, domain.ErrBedOutOfRange
	}
	for _, occupant := range m.activeForRoomLocked(alloc.RoomID) {
		if occupant.BedNumber == alloc.BedNumber {
			return nil, domain.ErrBedTaken
		}
	}
	if m.activeForStudentLocked(alloc.StudentID) != nil {
		return nil, domain.ErrStudentAlreadyAllocated
	}

	stored := alloc
	stored.Status = domain.AllocationActive
	m.allocations[stored.ID] = &stored
	room.Occupancy++
	return &stored, nil
}

func (m *MockAllocationRepository) EndAllocation(ctx context.Context, allocationID string, outboxPayload []byte) (*domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	ended, err := m.endLocked(allocationID)
	if err != nil {
		return nil, err
	}
	m.Payloads = append(m.Payloads, outboxPayload)
	copied := *ended
	return &copied, nil
}

func (m *MockAllocationRepository) endLocked(allocationID string) (*domain.Allocation, error) {
	alloc, ok := m.allocations[allocationID]
	if !ok {
		return nil, domain.ErrAllocationNotFound
	}
	if alloc.Status != domain.AllocationActive {
		return nil, domain.ErrAllocationEnded
	}
	now := time.Now().UTC()
	alloc.Status = domain.AllocationEnded
	alloc.EndedAt = &now
	if room, ok := m.rooms[alloc.RoomID]; ok {
		room.Occupancy--
	}
	return alloc, nil
}

func (m *MockAllocationRepository) DeactivateRoom(ctx context.Context, roomID string, outboxPayload []byte) ([]domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status == domain.RoomInactive {
		return nil, domain.ErrInvalidStatusTransition
	}

	var ended []domain.Allocation
	for _, occupant := range m.activeForRoomLocked(roomID) {
		alloc, err := m.endLocked(occupant.ID)
		if err != nil {
			return nil, err
		}
		ended = append(ended, *alloc)
	}
	room.Status = domain.RoomInactive
	m.Payloads = append(m.Payloads, outboxPayload)
	return ended, nil
}

func (m *MockAllocationRepository) ActivateRoom(ctx context.Context, roomID string, outboxPayload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.Status == domain.RoomActive {
		return domain.ErrInvalidStatusTransition
	}
	room.Status = domain.RoomActive
	m.Payloads = append(m.Payloads, outboxPayload)
	return nil
}
