package services_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/services"
	"github.com/hostelhq/hostel-suite/allocation-service/test/mocks"
)

func newAllocationFixture() (*services.AllocationService, *mocks.MockAllocationRepository, *mocks.MockAvailabilityCache) {
	repo := mocks.NewMockAllocationRepository()
	cache := mocks.NewMockAvailabilityCache()
	return services.NewAllocationService(repo, cache), repo, cache
}

func seedRoom(repo *mocks.MockAllocationRepository, id string, capacity int, status domain.RoomStatus) {
	repo.AddRoom(domain.Room{
		ID:         id,
		HostelID:   "hostel-1",
		UnitID:     "unit-a",
		RoomNumber: "10" + id[len(id)-1:],
		Capacity:   capacity,
		Status:     status,
	})
}

func TestAllocateAutoSelectsLowestFreeBed(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 3, domain.RoomActive)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, "student-1", "room-1", 0)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if first.BedNumber != 1 {
		t.Errorf("first allocation bed = %d, want 1", first.BedNumber)
	}

	second, err := svc.Allocate(ctx, "student-2", "room-1", 0)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if second.BedNumber != 2 {
		t.Errorf("second allocation bed = %d, want 2", second.BedNumber)
	}

	room, _ := repo.GetRoom(ctx, "room-1")
	if room.Occupancy != 2 {
		t.Errorf("room occupancy = %d, want 2", room.Occupancy)
	}
}

func TestAllocateAutoSelectFillsGapFirst(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 4, domain.RoomActive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 1); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if _, err := svc.Allocate(ctx, "student-2", "room-1", 3); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	alloc, err := svc.Allocate(ctx, "student-3", "room-1", 0)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if alloc.BedNumber != 2 {
		t.Errorf("allocation bed = %d, want 2 (lowest gap)", alloc.BedNumber)
	}
}

func TestAllocateRejections(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	seedRoom(repo, "room-2", 2, domain.RoomInactive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 1); err != nil {
		t.Fatalf("seed Allocate() error = %v", err)
	}

	tests := []struct {
		name      string
		studentID string
		roomID    string
		bedNumber int
		wantErr   error
	}{
		{"unknown room", "student-2", "room-9", 0, domain.ErrRoomNotFound},
		{"inactive room", "student-2", "room-2", 0, domain.ErrRoomInactive},
		{"bed already taken", "student-2", "room-1", 1, domain.ErrBedTaken},
		{"bed beyond capacity", "student-2", "room-1", 3, domain.ErrBedOutOfRange},
		{"student already allocated", "student-1", "room-1", 2, domain.ErrStudentAlreadyAllocated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Allocate(ctx, tt.studentID, tt.roomID, tt.bedNumber)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Allocate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllocateFullRoom(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 1, domain.RoomActive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 0); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if _, err := svc.Allocate(ctx, "student-2", "room-1", 0); !errors.Is(err, domain.ErrRoomFull) {
		t.Errorf("Allocate() error = %v, want ErrRoomFull", err)
	}
}

func TestDeallocateFreesBedForReuse(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, "student-1", "room-1", 1)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if _, err := svc.Allocate(ctx, "student-2", "room-1", 2); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if err := svc.Deallocate(ctx, first.ID); err != nil {
		t.Fatalf("Deallocate() error = %v", err)
	}

	room, _ := repo.GetRoom(ctx, "room-1")
	if room.Occupancy != 1 {
		t.Errorf("room occupancy = %d, want 1", room.Occupancy)
	}

	// The freed bed is the lowest again and must be picked next.
	next, err := svc.Allocate(ctx, "student-3", "room-1", 0)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if next.BedNumber != 1 {
		t.Errorf("reallocated bed = %d, want 1", next.BedNumber)
	}
}

func TestDeallocateErrors(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	ctx := context.Background()

	alloc, err := svc.Allocate(ctx, "student-1", "room-1", 0)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if err := svc.Deallocate(ctx, "no-such-id"); !errors.Is(err, domain.ErrAllocationNotFound) {
		t.Errorf("Deallocate() error = %v, want ErrAllocationNotFound", err)
	}

	if err := svc.Deallocate(ctx, alloc.ID); err != nil {
		t.Fatalf("Deallocate() error = %v", err)
	}
	if err := svc.Deallocate(ctx, alloc.ID); !errors.Is(err, domain.ErrAllocationEnded) {
		t.Errorf("second Deallocate() error = %v, want ErrAllocationEnded", err)
	}
}

func TestDeactivateRoomEndsAllAllocations(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 3, domain.RoomActive)
	ctx := context.Background()

	a1, _ := svc.Allocate(ctx, "student-1", "room-1", 0)
	a2, _ := svc.Allocate(ctx, "student-2", "room-1", 0)

	if err := svc.SetRoomStatus(ctx, "room-1", domain.RoomInactive); err != nil {
		t.Fatalf("SetRoomStatus() error = %v", err)
	}

	room, _ := repo.GetRoom(ctx, "room-1")
	if room.Status != domain.RoomInactive {
		t.Errorf("room status = %s, want INACTIVE", room.Status)
	}
	if room.Occupancy != 0 {
		t.Errorf("room occupancy = %d, want 0", room.Occupancy)
	}
	for _, id := range []string{a1.ID, a2.ID} {
		alloc, err := repo.GetAllocation(ctx, id)
		if err != nil {
			t.Fatalf("GetAllocation(%s) error = %v", id, err)
		}
		if alloc.Status != domain.AllocationEnded {
			t.Errorf("allocation %s status = %s, want ENDED", id, alloc.Status)
		}
		if alloc.EndedAt == nil {
			t.Errorf("allocation %s has no end timestamp", id)
		}
	}
}

func TestSetRoomStatusTransitions(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	ctx := context.Background()

	if err := svc.SetRoomStatus(ctx, "room-1", domain.RoomActive); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Errorf("SetRoomStatus(same) error = %v, want ErrInvalidStatusTransition", err)
	}

	if err := svc.SetRoomStatus(ctx, "room-1", domain.RoomInactive); err != nil {
		t.Fatalf("SetRoomStatus(INACTIVE) error = %v", err)
	}
	if err := svc.SetRoomStatus(ctx, "room-1", domain.RoomActive); err != nil {
		t.Fatalf("SetRoomStatus(ACTIVE) error = %v", err)
	}

	room, _ := repo.GetRoom(ctx, "room-1")
	if room.Status != domain.RoomActive {
		t.Errorf("room status = %s, want ACTIVE", room.Status)
	}
}

func TestAllocateToReactivatedRoom(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomInactive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 0); !errors.Is(err, domain.ErrRoomInactive) {
		t.Fatalf("Allocate() error = %v, want ErrRoomInactive", err)
	}

	if err := svc.SetRoomStatus(ctx, "room-1", domain.RoomActive); err != nil {
		t.Fatalf("SetRoomStatus() error = %v", err)
	}
	if _, err := svc.Allocate(ctx, "student-1", "room-1", 0); err != nil {
		t.Errorf("Allocate() after reactivation error = %v", err)
	}
}

func TestListRoomAvailability(t *testing.T) {
	svc, repo, cache := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	seedRoom(repo, "room-2", 2, domain.RoomInactive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 2); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	cacheInvalidationsBefore := len(cache.Invalidated)
	if cacheInvalidationsBefore == 0 {
		t.Error("Allocate() did not invalidate the availability cache")
	}

	listing, err := svc.ListRoomAvailability(ctx, "hostel-1")
	if err != nil {
		t.Fatalf("ListRoomAvailability() error = %v", err)
	}
	if len(listing) != 2 {
		t.Fatalf("len(listing) = %d, want 2", len(listing))
	}

	byID := make(map[string][]int, len(listing))
	for _, entry := range listing {
		byID[entry.Room.ID] = entry.AvailableBeds
	}
	if !reflect.DeepEqual(byID["room-1"], []int{1}) {
		t.Errorf("room-1 available beds = %v, want [1]", byID["room-1"])
	}
	if byID["room-2"] != nil {
		t.Errorf("room-2 (inactive) available beds = %v, want none", byID["room-2"])
	}

	if cache.Sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.Sets)
	}

	// Second listing is served from the cache.
	if _, err := svc.ListRoomAvailability(ctx, "hostel-1"); err != nil {
		t.Fatalf("ListRoomAvailability() error = %v", err)
	}
	if cache.Hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.Hits)
	}
}

func TestAvailableBedsAndOccupants(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 3, domain.RoomActive)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, "student-1", "room-1", 2); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	beds, err := svc.AvailableBeds(ctx, "room-1")
	if err != nil {
		t.Fatalf("AvailableBeds() error = %v", err)
	}
	if !reflect.DeepEqual(beds, []int{1, 3}) {
		t.Errorf("AvailableBeds() = %v, want [1 3]", beds)
	}

	occupants, err := svc.RoomOccupants(ctx, "room-1")
	if err != nil {
		t.Fatalf("RoomOccupants() error = %v", err)
	}
	if len(occupants) != 1 || occupants[0].StudentID != "student-1" {
		t.Errorf("RoomOccupants() = %+v, want one allocation for student-1", occupants)
	}

	if _, err := svc.RoomOccupants(ctx, "room-9"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("RoomOccupants(unknown) error = %v, want ErrRoomNotFound", err)
	}
}

func TestStudentAllocationAndHistory(t *testing.T) {
	svc, repo, _ := newAllocationFixture()
	seedRoom(repo, "room-1", 2, domain.RoomActive)
	ctx := context.Background()

	if _, err := svc.StudentAllocation(ctx, "student-1"); !errors.Is(err, domain.ErrNoActiveAllocation) {
		t.Errorf("StudentAllocation() error = %v, want ErrNoActiveAllocation", err)
	}

	first, _ := svc.Allocate(ctx, "student-1", "room-1", 1)
	if err := svc.Deallocate(ctx, first.ID); err != nil {
		t.Fatalf("Deallocate() error = %v", err)
	}
	second, _ := svc.Allocate(ctx, "student-1", "room-1", 2)

	current, err := svc.StudentAllocation(ctx, "student-1")
	if err != nil {
		t.Fatalf("StudentAllocation() error = %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("StudentAllocation() = %s, want %s", current.ID, second.ID)
	}

	history, err := svc.AllocationHistory(ctx, "student-1")
	if err != nil {
		t.Fatalf("AllocationHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("len(history) = %d, want 2", len(history))
	}
}
