package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

// MockRoomChangeRepository is an in-memory RoomChangeRepository. It shares the
// allocation ledger with a MockAllocationRepository so that ApproveRequest can
// perform the deallocate/allocate move with the same atomicity the SQL adapter
// has: on any failure nothing changes.
type MockRoomChangeRepository struct {
	mu       sync.Mutex
	ledger   *MockAllocationRepository
	requests map[string]*domain.RoomChangeRequest

	Payloads [][]byte

	failNext error
}

var _ ports.RoomChangeRepository = (*MockRoomChangeRepository)(nil)

func NewMockRoomChangeRepository(ledger *MockAllocationRepository) *MockRoomChangeRepository {
	return &MockRoomChangeRepository{
		ledger:   ledger,
		requests: make(map[string]*domain.RoomChangeRequest),
	}
}

// FailNextMutation makes the next mutating call return err without changes.
func (m *MockRoomChangeRepository) FailNextMutation(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockRoomChangeRepository) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MockRoomChangeRepository) CreateRequest(ctx context.Context, req domain.RoomChangeRequest) (*domain.RoomChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	for _, existing := range m.requests {
		if existing.StudentID == req.StudentID && existing.Status == domain.RequestPending {
			return nil, domain.ErrDuplicatePendingRequest
		}
	}
	stored := req
	m.requests[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *MockRoomChangeRepository) GetRequest(ctx context.Context, requestID string) (*domain.RoomChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *MockRoomChangeRepository) ListRequests(ctx context.Context, hostelID string, filters ports.RequestFilters) ([]domain.RoomChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reqs []domain.RoomChangeRequest
	for _, req := range m.requests {
		if req.HostelID != hostelID {
			continue
		}
		if filters.Status != "" && req.Status != filters.Status {
			continue
		}
		if filters.StudentID != "" && req.StudentID != filters.StudentID {
			continue
		}
		reqs = append(reqs, *req)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (m *MockRoomChangeRepository) ApproveRequest(ctx context.Context, requestID string, bedNumber int, outboxPayload []byte) (*domain.Allocation, error) {
	if bedNumber < 1 {
		return nil, domain.ErrBedSelectionRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	req, ok := m.requests[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()

	current := m.ledger.activeForStudentLocked(req.StudentID)
	if current == nil {
		return nil, domain.ErrNoActiveAllocation
	}
	room, ok := m.ledger.rooms[req.RequestedRoomID]
	if !ok {
		return nil, domain.ErrRequestedRoomUnavailable
	}
	if !domain.CanAccept(room) {
		return nil, domain.ErrRequestedRoomUnavailable
	}
	if !domain.ValidBed(room, bedNumber) {
		return nil, domain.ErrBedSelectionRequired
	}
	for _, occupant := range m.ledger.activeForRoomLocked(req.RequestedRoomID) {
		if occupant.BedNumber == bedNumber {
			return nil, domain.ErrBedSelectionRequired
		}
	}

	// Validation done: the move below cannot fail, matching the SQL
	// adapter's commit-or-rollback behavior.
	if _, err := m.ledger.endLocked(current.ID); err != nil {
		return nil, err
	}
	created, err := m.ledger.createLocked(domain.Allocation{
		ID:        req.ID + "-alloc",
		StudentID: req.StudentID,
		RoomID:    req.RequestedRoomID,
		BedNumber: bedNumber,
		Status:    domain.AllocationActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req.Status = domain.RequestApproved
	req.BedNumber = bedNumber
	req.DecidedAt = &now
	m.Payloads = append(m.Payloads, outboxPayload)

	copied := *created
	return &copied, nil
}

func (m *MockRoomChangeRepository) RejectRequest(ctx context.Context, requestID, rejectionReason string, outboxPayload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return domain.ErrRequestNotPending
	}
	now := time.Now().UTC()
	req.Status = domain.RequestRejected
	req.RejectionReason = rejectionReason
	req.DecidedAt = &now
	m.Payloads = append(m.Payloads, outboxPayload)
	return nil
}
