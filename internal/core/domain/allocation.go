package domain

import "time"

type AllocationStatus string

const (
	AllocationActive AllocationStatus = "ACTIVE"
	AllocationEnded  AllocationStatus = "ENDED"
)

// Allocation assigns one student to one bed in one room. Ended allocations are
// retained for history; a student holds at most one active allocation.
type Allocation struct {
	ID        string           `json:"allocation_id"`
	StudentID string           `json:"student_id"`
	RoomID    string           `json:"room_id"`
	BedNumber int              `json:"bed_number"`
	Status    AllocationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
}
