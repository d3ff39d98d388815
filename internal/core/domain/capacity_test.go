package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func room(capacity, occupancy int, status RoomStatus) *Room {
	return &Room{
		ID:         "room-1",
		HostelID:   "hostel-1",
		RoomNumber: "101",
		Capacity:   capacity,
		Status:     status,
		Occupancy:  occupancy,
	}
}

func TestCanAccept(t *testing.T) {
	tests := []struct {
		name string
		room *Room
		want bool
	}{
		{"empty active room", room(4, 0, RoomActive), true},
		{"one bed left", room(4, 3, RoomActive), true},
		{"full room", room(4, 4, RoomActive), false},
		{"inactive room with space", room(4, 0, RoomInactive), false},
		{"single bed room occupied", room(1, 1, RoomActive), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccept(tt.room); got != tt.want {
				t.Errorf("CanAccept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOccupiedBeds(t *testing.T) {
	now := time.Now()
	allocs := []Allocation{
		{ID: "a1", BedNumber: 3, Status: AllocationActive, CreatedAt: now},
		{ID: "a2", BedNumber: 1, Status: AllocationActive, CreatedAt: now},
		{ID: "a3", BedNumber: 2, Status: AllocationEnded, CreatedAt: now},
	}

	got := OccupiedBeds(allocs)
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("OccupiedBeds() = %v, want %v", got, want)
	}
}

func TestAvailableBeds(t *testing.T) {
	tests := []struct {
		name     string
		room     *Room
		occupied []int
		want     []int
	}{
		{"empty room", room(3, 0, RoomActive), nil, []int{1, 2, 3}},
		{"middle bed taken", room(3, 1, RoomActive), []int{2}, []int{1, 3}},
		{"full room", room(2, 2, RoomActive), []int{1, 2}, nil},
		{"inactive room has no beds", room(3, 0, RoomInactive), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableBeds(tt.room, tt.occupied)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AvailableBeds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickBedChoosesLowestFree(t *testing.T) {
	r := room(4, 2, RoomActive)

	bed, err := PickBed(r, []int{1, 3})
	if err != nil {
		t.Fatalf("PickBed() error = %v", err)
	}
	if bed != 2 {
		t.Errorf("PickBed() = %d, want 2", bed)
	}

	// Same inputs, same answer.
	again, _ := PickBed(r, []int{1, 3})
	if again != bed {
		t.Errorf("PickBed() not deterministic: %d then %d", bed, again)
	}
}

func TestPickBedFullRoom(t *testing.T) {
	_, err := PickBed(room(2, 2, RoomActive), []int{1, 2})
	if !errors.Is(err, ErrNoBedAvailable) {
		t.Errorf("PickBed() error = %v, want ErrNoBedAvailable", err)
	}
}

func TestValidBed(t *testing.T) {
	r := room(4, 0, RoomActive)

	for bed, want := range map[int]bool{0: false, 1: true, 4: true, 5: false, -1: false} {
		if got := ValidBed(r, bed); got != want {
			t.Errorf("ValidBed(%d) = %v, want %v", bed, got, want)
		}
	}
}
