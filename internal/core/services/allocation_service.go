package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

// AllocationService is the façade over the room inventory and the allocation
// ledger. It resolves beds and builds event payloads up front; the repository
// re-validates every invariant under the room's row lock, so a decision made
// here can lose a race but never corrupt occupancy.
type AllocationService struct {
	repo  ports.AllocationRepository
	cache ports.AvailabilityCache
}

var _ ports.AllocationService = (*AllocationService)(nil)

// NewAllocationService creates the allocation façade. cache may be nil.
func NewAllocationService(repo ports.AllocationRepository, cache ports.AvailabilityCache) *AllocationService {
	return &AllocationService{
		repo:  repo,
		cache: cache,
	}
}

// Allocate assigns a student to a room. bedNumber 0 means auto-select; the
// lowest free bed wins.
func (s *AllocationService) Allocate(ctx context.Context, studentID, roomID string, bedNumber int) (*domain.Allocation, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrRoomInactive
	}
	if !domain.CanAccept(room) {
		return nil, domain.ErrRoomFull
	}

	occupants, err := s.repo.ActiveAllocationsForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	occupied := domain.OccupiedBeds(occupants)

	if bedNumber == 0 {
		bedNumber, err = domain.PickBed(room, occupied)
		if err != nil {
			return nil, domain.ErrRoomFull
		}
	} else {
		if !domain.ValidBed(room, bedNumber) {
			return nil, domain.ErrBedOutOfRange
		}
		for _, b := range occupied {
			if b == bedNumber {
				return nil, domain.ErrBedTaken
			}
		}
	}

	alloc := domain.Allocation{
		ID:        uuid.NewString(),
		StudentID: studentID,
		RoomID:    roomID,
		BedNumber: bedNumber,
		Status:    domain.AllocationActive,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(ports.RoomAllocatedEvent{
		AllocationID: alloc.ID,
		StudentID:    alloc.StudentID,
		RoomID:       alloc.RoomID,
		BedNumber:    alloc.BedNumber,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateAllocation(ctx, alloc, payload)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, room.HostelID)
	return created, nil
}

// Deallocate ends an active allocation and frees its bed.
func (s *AllocationService) Deallocate(ctx context.Context, allocationID string) error {
	alloc, err := s.repo.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.Status != domain.AllocationActive {
		return domain.ErrAllocationEnded
	}

	payload, err := json.Marshal(ports.RoomDeallocatedEvent{
		AllocationID: alloc.ID,
		StudentID:    alloc.StudentID,
		RoomID:       alloc.RoomID,
		BedNumber:    alloc.BedNumber,
	})
	if err != nil {
		return err
	}

	if _, err := s.repo.EndAllocation(ctx, allocationID, payload); err != nil {
		return err
	}

	if room, err := s.repo.GetRoom(ctx, alloc.RoomID); err == nil {
		s.invalidate(ctx, room.HostelID)
	}
	return nil
}

// SetRoomStatus toggles a room between ACTIVE and INACTIVE. Deactivation ends
// every active allocation in the room as part of the same unit of work.
func (s *AllocationService) SetRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) error {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == status {
		return domain.ErrInvalidStatusTransition
	}

	payload, err := json.Marshal(ports.RoomStatusEvent{
		RoomID:   room.ID,
		HostelID: room.HostelID,
		Status:   string(status),
	})
	if err != nil {
		return err
	}

	switch status {
	case domain.RoomInactive:
		_, err = s.repo.DeactivateRoom(ctx, roomID, payload)
	case domain.RoomActive:
		err = s.repo.ActivateRoom(ctx, roomID, payload)
	default:
		return domain.ErrInvalidStatusTransition
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx, room.HostelID)
	return nil
}

// ListRoomAvailability returns every room in the hostel with its free beds.
// Served from the cache when possible; this is the gate tooling hot path.
func (s *AllocationService) ListRoomAvailability(ctx context.Context, hostelID string) ([]ports.RoomAvailability, error) {
	if s.cache != nil {
		if rooms, ok := s.cache.GetRoomAvailability(ctx, hostelID); ok {
			return rooms, nil
		}
	}

	rooms, err := s.repo.ListRooms(ctx, hostelID)
	if err != nil {
		return nil, err
	}

	listing := make([]ports.RoomAvailability, 0, len(rooms))
	for i := range rooms {
		room := rooms[i]
		var free []int
		if room.Status == domain.RoomActive {
			occupants, err := s.repo.ActiveAllocationsForRoom(ctx, room.ID)
			if err != nil {
				return nil, err
			}
			free = domain.AvailableBeds(&room, domain.OccupiedBeds(occupants))
		}
		listing = append(listing, ports.RoomAvailability{Room: room, AvailableBeds: free})
	}

	if s.cache != nil {
		s.cache.SetRoomAvailability(ctx, hostelID, listing)
	}
	return listing, nil
}

// AvailableBeds returns the free bed numbers for one room, ascending.
func (s *AllocationService) AvailableBeds(ctx context.Context, roomID string) ([]int, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	occupants, err := s.repo.ActiveAllocationsForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return domain.AvailableBeds(room, domain.OccupiedBeds(occupants)), nil
}

// RoomOccupants returns the active allocations in a room.
func (s *AllocationService) RoomOccupants(ctx context.Context, roomID string) ([]domain.Allocation, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.repo.ActiveAllocationsForRoom(ctx, roomID)
}

// StudentAllocation returns the student's current active allocation.
func (s *AllocationService) StudentAllocation(ctx context.Context, studentID string) (*domain.Allocation, error) {
	return s.repo.ActiveAllocationForStudent(ctx, studentID)
}

// AllocationHistory returns all allocations the student has ever held,
// newest first.
func (s *AllocationService) AllocationHistory(ctx context.Context, studentID string) ([]domain.Allocation, error) {
	return s.repo.AllocationHistoryForStudent(ctx, studentID)
}

func (s *AllocationService) invalidate(ctx context.Context, hostelID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, hostelID)
	}
}
