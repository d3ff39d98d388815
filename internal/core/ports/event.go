package ports

import "context"

// Event types written to the outbox and relayed to the message broker.
const (
	EventRoomAllocated      = "room.allocated"
	EventRoomDeallocated    = "room.deallocated"
	EventRoomDeactivated    = "room.deactivated"
	EventRoomActivated      = "room.activated"
	EventRoomChangeApproved = "room_change.approved"
	EventRoomChangeRejected = "room_change.rejected"
)

type RoomAllocatedEvent struct {
	AllocationID string `json:"allocation_id"`
	StudentID    string `json:"student_id"`
	RoomID       string `json:"room_id"`
	BedNumber    int    `json:"bed_number"`
}

type RoomDeallocatedEvent struct {
	AllocationID string `json:"allocation_id"`
	StudentID    string `json:"student_id"`
	RoomID       string `json:"room_id"`
	BedNumber    int    `json:"bed_number"`
}

type RoomStatusEvent struct {
	RoomID   string `json:"room_id"`
	HostelID string `json:"hostel_id"`
	Status   string `json:"status"`
}

type RoomChangeDecidedEvent struct {
	RequestID       string `json:"request_id"`
	StudentID       string `json:"student_id"`
	FromRoomID      string `json:"from_room_id,omitempty"`
	ToRoomID        string `json:"to_room_id,omitempty"`
	BedNumber       int    `json:"bed_number,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// AllocationEventPublisher delivers relayed outbox events to the broker.
type AllocationEventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
