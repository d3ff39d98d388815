package ports

import (
	"context"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
)

// RoomAvailability is the listing shape served to warden and gate tooling.
type RoomAvailability struct {
	Room          domain.Room `json:"room"`
	AvailableBeds []int       `json:"available_beds"`
}

// AllocationService is the façade over the room inventory and the allocation
// ledger. Bed number 0 on Allocate means "pick the lowest free bed".
type AllocationService interface {
	Allocate(ctx context.Context, studentID, roomID string, bedNumber int) (*domain.Allocation, error)
	Deallocate(ctx context.Context, allocationID string) error
	SetRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) error
	ListRoomAvailability(ctx context.Context, hostelID string) ([]RoomAvailability, error)
	AvailableBeds(ctx context.Context, roomID string) ([]int, error)
	RoomOccupants(ctx context.Context, roomID string) ([]domain.Allocation, error)
	StudentAllocation(ctx context.Context, studentID string) (*domain.Allocation, error)
	AllocationHistory(ctx context.Context, studentID string) ([]domain.Allocation, error)
}

// RoomChangeDetail pairs a request with snapshots of both rooms involved.
type RoomChangeDetail struct {
	Request       domain.RoomChangeRequest `json:"request"`
	CurrentRoom   *domain.Room             `json:"current_room,omitempty"`
	RequestedRoom *domain.Room             `json:"requested_room,omitempty"`
}

// RoomChangeService drives the request workflow: Pending -> Approved|Rejected.
type RoomChangeService interface {
	Submit(ctx context.Context, studentID, requestedRoomID, reason string) (*domain.RoomChangeRequest, error)
	Approve(ctx context.Context, requestID string, bedNumber int) error
	Reject(ctx context.Context, requestID, rejectionReason string) error
	ListRequests(ctx context.Context, hostelID string, filters RequestFilters) ([]domain.RoomChangeRequest, error)
	GetRequest(ctx context.Context, requestID string) (*RoomChangeDetail, error)
}
