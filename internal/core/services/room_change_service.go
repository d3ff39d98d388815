package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

// RoomChangeService runs the request workflow: a student submits a move
// request while allocated, a warden approves or rejects it. Capacity on the
// requested room is validated at approval time, not at submission, because
// occupancy may change while the request is pending. Approval delegates the
// deallocate/allocate pair to a single repository transaction spanning both
// rooms, so a failed move leaves the student's original allocation intact.
type RoomChangeService struct {
	requests ports.RoomChangeRepository
	rooms    ports.AllocationRepository
	cache    ports.AvailabilityCache
}

var _ ports.RoomChangeService = (*RoomChangeService)(nil)

// NewRoomChangeService creates the workflow service. cache may be nil.
func NewRoomChangeService(requests ports.RoomChangeRepository, rooms ports.AllocationRepository, cache ports.AvailabilityCache) *RoomChangeService {
	return &RoomChangeService{
		requests: requests,
		rooms:    rooms,
		cache:    cache,
	}
}

// Submit opens a pending request for the student's move into requestedRoomID.
// The student's current room is snapshotted now; only one pending request per
// student may exist.
func (s *RoomChangeService) Submit(ctx context.Context, studentID, requestedRoomID, reason string) (*domain.RoomChangeRequest, error) {
	current, err := s.rooms.ActiveAllocationForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if requestedRoomID == current.RoomID {
		return nil, domain.ErrSameRoomRequested
	}

	requested, err := s.rooms.GetRoom(ctx, requestedRoomID)
	if err != nil {
		return nil, err
	}

	req := domain.RoomChangeRequest{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		HostelID:        requested.HostelID,
		CurrentRoomID:   current.RoomID,
		RequestedRoomID: requestedRoomID,
		Status:          domain.RequestPending,
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	}
	return s.requests.CreateRequest(ctx, req)
}

// Approve moves the student into the requested room and finalizes the
// request. bedNumber 0 auto-selects the lowest free bed. The requested room
// must still accept an occupant now, whatever was true at submission.
func (s *RoomChangeService) Approve(ctx context.Context, requestID string, bedNumber int) error {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != domain.RequestPending {
		return domain.ErrRequestNotPending
	}

	room, err := s.rooms.GetRoom(ctx, req.RequestedRoomID)
	if err != nil {
		return err
	}
	if !domain.CanAccept(room) {
		return domain.ErrRequestedRoomUnavailable
	}

	occupants, err := s.rooms.ActiveAllocationsForRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	occupied := domain.OccupiedBeds(occupants)

	if bedNumber == 0 {
		bedNumber, err = domain.PickBed(room, occupied)
		if err != nil {
			return domain.ErrRequestedRoomUnavailable
		}
	} else {
		if !domain.ValidBed(room, bedNumber) {
			return domain.ErrBedSelectionRequired
		}
		for _, b := range occupied {
			if b == bedNumber {
				return domain.ErrBedSelectionRequired
			}
		}
	}

	payload, err := json.Marshal(ports.RoomChangeDecidedEvent{
		RequestID:  req.ID,
		StudentID:  req.StudentID,
		FromRoomID: req.CurrentRoomID,
		ToRoomID:   req.RequestedRoomID,
		BedNumber:  bedNumber,
	})
	if err != nil {
		return err
	}

	if _, err := s.requests.ApproveRequest(ctx, requestID, bedNumber, payload); err != nil {
		return err
	}

	s.invalidate(ctx, room.HostelID)
	if from, err := s.rooms.GetRoom(ctx, req.CurrentRoomID); err == nil && from.HostelID != room.HostelID {
		s.invalidate(ctx, from.HostelID)
	}
	return nil
}

// Reject finalizes a pending request without touching any allocation.
func (s *RoomChangeService) Reject(ctx context.Context, requestID, rejectionReason string) error {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != domain.RequestPending {
		return domain.ErrRequestNotPending
	}

	payload, err := json.Marshal(ports.RoomChangeDecidedEvent{
		RequestID:       req.ID,
		StudentID:       req.StudentID,
		RejectionReason: rejectionReason,
	})
	if err != nil {
		return err
	}
	return s.requests.RejectRequest(ctx, requestID, rejectionReason, payload)
}

// ListRequests returns the hostel's requests matching the filters.
func (s *RoomChangeService) ListRequests(ctx context.Context, hostelID string, filters ports.RequestFilters) ([]domain.RoomChangeRequest, error) {
	return s.requests.ListRequests(ctx, hostelID, filters)
}

// GetRequest returns a request together with snapshots of both rooms. Missing
// rooms leave the snapshot nil rather than failing the lookup.
func (s *RoomChangeService) GetRequest(ctx context.Context, requestID string) (*ports.RoomChangeDetail, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	detail := &ports.RoomChangeDetail{Request: *req}
	if room, err := s.rooms.GetRoom(ctx, req.CurrentRoomID); err == nil {
		detail.CurrentRoom = room
	}
	if room, err := s.rooms.GetRoom(ctx, req.RequestedRoomID); err == nil {
		detail.RequestedRoom = room
	}
	return detail, nil
}

func (s *RoomChangeService) invalidate(ctx context.Context, hostelID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, hostelID)
	}
}
