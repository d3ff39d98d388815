package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/middleware"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

type RoomChangeHandler struct {
	roomChangeService ports.RoomChangeService
}

func NewRoomChangeHandler(roomChangeService ports.RoomChangeService) *RoomChangeHandler {
	return &RoomChangeHandler{roomChangeService: roomChangeService}
}

type SubmitRequest struct {
	StudentID       string `json:"student_id,omitempty"`
	RequestedRoomID string `json:"requested_room_id"`
	Reason          string `json:"reason"`
}

type ApproveRequest struct {
	BedNumber int `json:"bed_number,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Submit handles POST /room-changes. A student always submits for themselves;
// the student id from the token wins over the body. Wardens may submit on a
// student's behalf by passing student_id explicitly.
func (h *RoomChangeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request payload")
		return
	}

	studentID := req.StudentID
	role, _ := r.Context().Value(middleware.RoleKey).(string)
	if sub, ok := r.Context().Value(middleware.UserIDKey).(string); ok && (role == "STUDENT" || studentID == "") {
		studentID = sub
	}

	if studentID == "" || req.RequestedRoomID == "" {
		badRequest(w, "student_id and requested_room_id are required")
		return
	}

	created, err := h.roomChangeService.Submit(r.Context(), studentID, req.RequestedRoomID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /room-changes?hostel_id=&status=&student_id=.
func (h *RoomChangeHandler) List(w http.ResponseWriter, r *http.Request) {
	hostelID := r.URL.Query().Get("hostel_id")
	if hostelID == "" {
		badRequest(w, "hostel_id is required")
		return
	}

	filters := ports.RequestFilters{
		StudentID: r.URL.Query().Get("student_id"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		rs := domain.RequestStatus(status)
		if rs != domain.RequestPending && rs != domain.RequestApproved && rs != domain.RequestRejected {
			badRequest(w, "status must be PENDING, APPROVED or REJECTED")
			return
		}
		filters.Status = rs
	}

	reqs, err := h.roomChangeService.ListRequests(r.Context(), hostelID, filters)
	if err != nil {
		writeError(w, err)
		return
	}
	if reqs == nil {
		reqs = []domain.RoomChangeRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

// Get handles GET /room-changes/{id}: the request plus snapshots of the
// current and requested rooms.
func (h *RoomChangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.roomChangeService.GetRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Approve handles POST /room-changes/{id}/approve. Omitting bed_number lets
// the service pick the lowest free bed in the requested room.
func (h *RoomChangeHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request payload")
			return
		}
	}
	if req.BedNumber < 0 {
		badRequest(w, "bed_number must be positive")
		return
	}

	if err := h.roomChangeService.Approve(r.Context(), r.PathValue("id"), req.BedNumber); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reject handles POST /room-changes/{id}/reject.
func (h *RoomChangeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request payload")
			return
		}
	}

	if err := h.roomChangeService.Reject(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
