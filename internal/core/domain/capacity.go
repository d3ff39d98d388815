package domain

import "sort"

// Capacity logic shared by the allocation and approval paths. These functions
// are pure: callers load room state, decide here, and write under the room's
// row lock so the decision cannot be invalidated by a concurrent writer.

// CanAccept reports whether the room can take one more occupant.
func CanAccept(room *Room) bool {
	return room.Status == RoomActive && room.Occupancy < room.Capacity
}

// OccupiedBeds returns the bed numbers held by active allocations.
func OccupiedBeds(allocs []Allocation) []int {
	beds := make([]int, 0, len(allocs))
	for _, a := range allocs {
		if a.Status == AllocationActive {
			beds = append(beds, a.BedNumber)
		}
	}
	sort.Ints(beds)
	return beds
}

// AvailableBeds computes {1..capacity} minus the occupied set, ascending.
// An inactive room has no available beds regardless of occupancy.
func AvailableBeds(room *Room, occupied []int) []int {
	if room.Status != RoomActive {
		return nil
	}
	taken := make(map[int]bool, len(occupied))
	for _, b := range occupied {
		taken[b] = true
	}
	var free []int
	for b := 1; b <= room.Capacity; b++ {
		if !taken[b] {
			free = append(free, b)
		}
	}
	return free
}

// PickBed selects a bed for a new occupant: the lowest free bed number wins.
// The tie-break is deliberate and relied on by callers for reproducibility.
func PickBed(room *Room, occupied []int) (int, error) {
	free := AvailableBeds(room, occupied)
	if len(free) == 0 {
		return 0, ErrNoBedAvailable
	}
	return free[0], nil
}

// ValidBed reports whether bed is inside the room's 1..capacity range.
func ValidBed(room *Room, bed int) bool {
	return bed >= 1 && bed <= room.Capacity
}
