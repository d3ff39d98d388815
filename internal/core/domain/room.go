package domain

type RoomStatus string

const (
	RoomActive   RoomStatus = "ACTIVE"
	RoomInactive RoomStatus = "INACTIVE"
)

// Room is a bookable room within a hostel unit. Capacity is fixed by
// provisioning; Occupancy is maintained by the allocation service and always
// equals the number of active allocations referencing the room.
type Room struct {
	ID         string     `json:"room_id"`
	HostelID   string     `json:"hostel_id"`
	UnitID     string     `json:"unit_id"`
	RoomNumber string     `json:"room_number"`
	Capacity   int        `json:"capacity"`
	Status     RoomStatus `json:"status"`
	Occupancy  int        `json:"current_occupancy"`
}
