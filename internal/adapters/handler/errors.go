package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the core's typed errors onto HTTP status codes. The core
// returns a distinguishable kind, not a rendered message; the message here is
// the error text itself.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrAllocationNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrNoActiveAllocation):
		status = http.StatusNotFound

	case errors.Is(err, domain.ErrRoomInactive),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrBedTaken),
		errors.Is(err, domain.ErrStudentAlreadyAllocated),
		errors.Is(err, domain.ErrAllocationEnded),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrRequestNotPending),
		errors.Is(err, domain.ErrRequestedRoomUnavailable),
		errors.Is(err, domain.ErrDuplicatePendingRequest),
		errors.Is(err, domain.ErrSameRoomRequested):
		status = http.StatusConflict

	case errors.Is(err, domain.ErrBedOutOfRange),
		errors.Is(err, domain.ErrBedSelectionRequired):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Printf("handler: internal error: %v", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
