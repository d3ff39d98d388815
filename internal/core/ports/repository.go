package ports

import (
	"context"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
)

// AllocationRepository owns room inventory reads and the allocation ledger.
// Mutating methods are atomic: each runs in a single transaction that locks
// the affected room row(s) and re-validates capacity, bed and student
// invariants before writing. outboxPayload, when non-nil, is written to the
// outbox table in the same transaction.
type AllocationRepository interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context, hostelID string) ([]domain.Room, error)

	GetAllocation(ctx context.Context, allocationID string) (*domain.Allocation, error)
	ActiveAllocationsForRoom(ctx context.Context, roomID string) ([]domain.Allocation, error)
	ActiveAllocationForStudent(ctx context.Context, studentID string) (*domain.Allocation, error)
	AllocationHistoryForStudent(ctx context.Context, studentID string) ([]domain.Allocation, error)

	// CreateAllocation records a new active allocation and increments the
	// room's occupancy. Fails with domain.ErrRoomNotFound, ErrRoomInactive,
	// ErrRoomFull, ErrBedTaken or ErrStudentAlreadyAllocated.
	CreateAllocation(ctx context.Context, alloc domain.Allocation, outboxPayload []byte) (*domain.Allocation, error)

	// EndAllocation closes an active allocation and decrements occupancy.
	// Fails with domain.ErrAllocationNotFound or ErrAllocationEnded.
	EndAllocation(ctx context.Context, allocationID string, outboxPayload []byte) (*domain.Allocation, error)

	// DeactivateRoom ends every active allocation in the room and flips the
	// status to INACTIVE as one unit of work. Returns the ended allocations.
	DeactivateRoom(ctx context.Context, roomID string, outboxPayload []byte) ([]domain.Allocation, error)

	// ActivateRoom flips an inactive room back to ACTIVE.
	ActivateRoom(ctx context.Context, roomID string, outboxPayload []byte) error
}

// RequestFilters narrows ListRequests. Zero values match everything.
type RequestFilters struct {
	Status    domain.RequestStatus
	StudentID string
}

// RoomChangeRepository owns room change request records. ApproveRequest is the
// one cross-room operation in the system: it locks the request row plus both
// room rows (in room-id order) and commits the deallocate/allocate pair
// together with the status flip, or nothing at all.
type RoomChangeRepository interface {
	CreateRequest(ctx context.Context, req domain.RoomChangeRequest) (*domain.RoomChangeRequest, error)
	GetRequest(ctx context.Context, requestID string) (*domain.RoomChangeRequest, error)
	ListRequests(ctx context.Context, hostelID string, filters RequestFilters) ([]domain.RoomChangeRequest, error)

	// ApproveRequest moves the student into the requested room on the given
	// bed and marks the request APPROVED. Fails with
	// domain.ErrRequestNotFound, ErrRequestNotPending,
	// ErrRequestedRoomUnavailable or ErrBedSelectionRequired.
	ApproveRequest(ctx context.Context, requestID string, bedNumber int, outboxPayload []byte) (*domain.Allocation, error)

	// RejectRequest marks a pending request REJECTED with an optional reason.
	RejectRequest(ctx context.Context, requestID, rejectionReason string, outboxPayload []byte) error
}
