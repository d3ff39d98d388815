package domain

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// RoomChangeRequest is a student-initiated request to move to a different
// room. CurrentRoomID is a snapshot of the student's room at submission time.
// BedNumber is zero until a bed is chosen at approval. Approved and Rejected
// are terminal: a request is decided exactly once.
type RoomChangeRequest struct {
	ID              string        `json:"request_id"`
	StudentID       string        `json:"student_id"`
	HostelID        string        `json:"hostel_id"`
	CurrentRoomID   string        `json:"current_room_id"`
	RequestedRoomID string        `json:"requested_room_id"`
	BedNumber       int           `json:"bed_number,omitempty"`
	Status          RequestStatus `json:"status"`
	Reason          string        `json:"reason"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
}
