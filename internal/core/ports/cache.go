package ports

import "context"

// AvailabilityCache holds per-hostel room availability listings. A nil or
// failing cache is never fatal: services fall back to the repository.
type AvailabilityCache interface {
	GetRoomAvailability(ctx context.Context, hostelID string) ([]RoomAvailability, bool)
	SetRoomAvailability(ctx context.Context, hostelID string, rooms []RoomAvailability)
	Invalidate(ctx context.Context, hostelID string)
}
