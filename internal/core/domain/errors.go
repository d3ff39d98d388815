package domain

import "errors"

// Typed errors raised by the allocation core. Adapters map these to transport
// status codes; the core never logs or retries on them.
var (
	// Not-found family.
	ErrRoomNotFound       = errors.New("room not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrRequestNotFound    = errors.New("room change request not found")

	// Conflict family: a policy was violated or a concurrent writer won.
	ErrRoomInactive             = errors.New("room is inactive")
	ErrRoomFull                 = errors.New("room is at capacity")
	ErrBedTaken                 = errors.New("bed is already occupied")
	ErrStudentAlreadyAllocated  = errors.New("student already holds an active allocation")
	ErrAllocationEnded          = errors.New("allocation already ended")
	ErrInvalidStatusTransition  = errors.New("room already in requested status")
	ErrRequestNotPending        = errors.New("room change request is not pending")
	ErrRequestedRoomUnavailable = errors.New("requested room cannot accept another occupant")
	ErrDuplicatePendingRequest  = errors.New("student already has a pending room change request")

	// Validation family.
	ErrBedOutOfRange        = errors.New("bed number outside room capacity")
	ErrBedSelectionRequired = errors.New("a valid bed number is required for approval")
	ErrNoActiveAllocation   = errors.New("student has no active allocation")
	ErrNoBedAvailable       = errors.New("no free bed in room")
	ErrSameRoomRequested    = errors.New("requested room matches current room")
)
