package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

type AllocationHandler struct {
	allocationService ports.AllocationService
}

func NewAllocationHandler(allocationService ports.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService}
}

type AllocateRequest struct {
	StudentID string `json:"student_id"`
	RoomID    string `json:"room_id"`
	BedNumber int    `json:"bed_number,omitempty"`
}

type SetRoomStatusRequest struct {
	Status string `json:"status"`
}

// Allocate handles POST /allocations. A missing bed_number means the lowest
// free bed is selected.
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request payload")
		return
	}
	if req.StudentID == "" || req.RoomID == "" {
		badRequest(w, "student_id and room_id are required")
		return
	}
	if req.BedNumber < 0 {
		badRequest(w, "bed_number must be positive")
		return
	}

	alloc, err := h.allocationService.Allocate(r.Context(), req.StudentID, req.RoomID, req.BedNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alloc)
}

// Deallocate handles DELETE /allocations/{id}.
func (h *AllocationHandler) Deallocate(w http.ResponseWriter, r *http.Request) {
	allocationID := r.PathValue("id")
	if allocationID == "" {
		badRequest(w, "allocation id is required")
		return
	}

	if err := h.allocationService.Deallocate(r.Context(), allocationID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRoomStatus handles PUT /rooms/{id}/status. Deactivating a room
// deallocates all of its occupants in the same unit of work.
func (h *AllocationHandler) SetRoomStatus(w http.ResponseWriter, r *http.Request) {
	var req SetRoomStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request payload")
		return
	}

	status := domain.RoomStatus(req.Status)
	if status != domain.RoomActive && status != domain.RoomInactive {
		badRequest(w, "status must be ACTIVE or INACTIVE")
		return
	}

	if err := h.allocationService.SetRoomStatus(r.Context(), r.PathValue("id"), status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRooms handles GET /rooms?hostel_id=...
func (h *AllocationHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	hostelID := r.URL.Query().Get("hostel_id")
	if hostelID == "" {
		badRequest(w, "hostel_id is required")
		return
	}

	rooms, err := h.allocationService.ListRoomAvailability(r.Context(), hostelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// AvailableBeds handles GET /rooms/{id}/beds.
func (h *AllocationHandler) AvailableBeds(w http.ResponseWriter, r *http.Request) {
	beds, err := h.allocationService.AvailableBeds(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if beds == nil {
		beds = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"available_beds": beds})
}

// RoomOccupants handles GET /rooms/{id}/occupants.
func (h *AllocationHandler) RoomOccupants(w http.ResponseWriter, r *http.Request) {
	occupants, err := h.allocationService.RoomOccupants(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if occupants == nil {
		occupants = []domain.Allocation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"occupants": occupants})
}

// StudentAllocation handles GET /students/{id}/allocation.
func (h *AllocationHandler) StudentAllocation(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.allocationService.StudentAllocation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

// AllocationHistory handles GET /students/{id}/allocations.
func (h *AllocationHandler) AllocationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.allocationService.AllocationHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []domain.Allocation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"allocations": history})
}
