package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/handler"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/services"
	"github.com/hostelhq/hostel-suite/allocation-service/test/mocks"
)

// newAllocationMux wires the allocation routes the way cmd/api does, minus
// auth, against in-memory repositories.
func newAllocationMux(repo *mocks.MockAllocationRepository) *http.ServeMux {
	svc := services.NewAllocationService(repo, nil)
	h := handler.NewAllocationHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /allocations", h.Allocate)
	mux.HandleFunc("DELETE /allocations/{id}", h.Deallocate)
	mux.HandleFunc("PUT /rooms/{id}/status", h.SetRoomStatus)
	mux.HandleFunc("GET /rooms", h.ListRooms)
	mux.HandleFunc("GET /rooms/{id}/beds", h.AvailableBeds)
	mux.HandleFunc("GET /rooms/{id}/occupants", h.RoomOccupants)
	mux.HandleFunc("GET /students/{id}/allocation", h.StudentAllocation)
	mux.HandleFunc("GET /students/{id}/allocations", h.AllocationHistory)
	return mux
}

func seedActiveRoom(repo *mocks.MockAllocationRepository, id string, capacity int) {
	repo.AddRoom(domain.Room{
		ID:       id,
		HostelID: "hostel-1",
		Capacity: capacity,
		Status:   domain.RoomActive,
	})
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAllocateEndpoint(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 1)
	mux := newAllocationMux(repo)

	rec := doJSON(t, mux, http.MethodPost, "/allocations", `{"student_id":"student-1","room_id":"room-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var alloc domain.Allocation
	if err := json.Unmarshal(rec.Body.Bytes(), &alloc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if alloc.BedNumber != 1 || alloc.Status != domain.AllocationActive {
		t.Errorf("allocation = %+v, want bed 1 ACTIVE", alloc)
	}
}

func TestAllocateEndpointErrors(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 1)
	repo.AddRoom(domain.Room{ID: "room-2", HostelID: "hostel-1", Capacity: 2, Status: domain.RoomInactive})
	mux := newAllocationMux(repo)

	if rec := doJSON(t, mux, http.MethodPost, "/allocations", `{"student_id":"s","room_id":"room-1"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed allocation status = %d", rec.Code)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing fields", `{"student_id":"s2"}`, http.StatusBadRequest},
		{"negative bed", `{"student_id":"s2","room_id":"room-1","bed_number":-1}`, http.StatusBadRequest},
		{"unknown room", `{"student_id":"s2","room_id":"room-9"}`, http.StatusNotFound},
		{"full room", `{"student_id":"s2","room_id":"room-1"}`, http.StatusConflict},
		{"inactive room", `{"student_id":"s2","room_id":"room-2"}`, http.StatusConflict},
		{"duplicate student", `{"student_id":"s","room_id":"room-2"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/allocations", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestDeallocateEndpoint(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 2)
	mux := newAllocationMux(repo)

	rec := doJSON(t, mux, http.MethodPost, "/allocations", `{"student_id":"s","room_id":"room-1"}`)
	var alloc domain.Allocation
	if err := json.Unmarshal(rec.Body.Bytes(), &alloc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/allocations/"+alloc.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/allocations/"+alloc.ID, ""); rec.Code != http.StatusConflict {
		t.Errorf("second delete status = %d, want 409", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/allocations/no-such-id", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id delete status = %d, want 404", rec.Code)
	}
}

func TestSetRoomStatusEndpoint(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 2)
	mux := newAllocationMux(repo)

	if rec := doJSON(t, mux, http.MethodPut, "/rooms/room-1/status", `{"status":"CLOSED"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad status value: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPut, "/rooms/room-1/status", `{"status":"ACTIVE"}`); rec.Code != http.StatusConflict {
		t.Errorf("no-op transition: status = %d, want 409", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPut, "/rooms/room-1/status", `{"status":"INACTIVE"}`); rec.Code != http.StatusNoContent {
		t.Errorf("deactivate: status = %d, want 204", rec.Code)
	}
}

func TestRoomQueryEndpoints(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 2)
	mux := newAllocationMux(repo)

	if rec := doJSON(t, mux, http.MethodPost, "/allocations", `{"student_id":"s","room_id":"room-1","bed_number":2}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed allocation status = %d", rec.Code)
	}

	if rec := doJSON(t, mux, http.MethodGet, "/rooms", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("list without hostel_id: status = %d, want 400", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/rooms?hostel_id=hostel-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listing struct {
		Rooms []struct {
			Room          domain.Room `json:"room"`
			AvailableBeds []int       `json:"available_beds"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decoding listing: %v", err)
	}
	if len(listing.Rooms) != 1 || len(listing.Rooms[0].AvailableBeds) != 1 || listing.Rooms[0].AvailableBeds[0] != 1 {
		t.Errorf("listing = %+v, want room-1 with free bed 1", listing.Rooms)
	}

	rec = doJSON(t, mux, http.MethodGet, "/rooms/room-1/beds", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("beds status = %d", rec.Code)
	}
	var beds struct {
		AvailableBeds []int `json:"available_beds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &beds); err != nil {
		t.Fatalf("decoding beds: %v", err)
	}
	if len(beds.AvailableBeds) != 1 || beds.AvailableBeds[0] != 1 {
		t.Errorf("available beds = %v, want [1]", beds.AvailableBeds)
	}

	rec = doJSON(t, mux, http.MethodGet, "/rooms/room-1/occupants", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("occupants status = %d", rec.Code)
	}
	var occupants struct {
		Occupants []domain.Allocation `json:"occupants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &occupants); err != nil {
		t.Fatalf("decoding occupants: %v", err)
	}
	if len(occupants.Occupants) != 1 || occupants.Occupants[0].StudentID != "s" {
		t.Errorf("occupants = %+v, want one for student s", occupants.Occupants)
	}

	if rec := doJSON(t, mux, http.MethodGet, "/rooms/room-9/occupants", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown room occupants: status = %d, want 404", rec.Code)
	}
}

func TestStudentEndpoints(t *testing.T) {
	repo := mocks.NewMockAllocationRepository()
	seedActiveRoom(repo, "room-1", 2)
	mux := newAllocationMux(repo)

	if rec := doJSON(t, mux, http.MethodGet, "/students/s/allocation", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unallocated student: status = %d, want 404", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/students/s/allocations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var history struct {
		Allocations []domain.Allocation `json:"allocations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if history.Allocations == nil || len(history.Allocations) != 0 {
		t.Errorf("history = %v, want empty array", history.Allocations)
	}

	if rec := doJSON(t, mux, http.MethodPost, "/allocations", `{"student_id":"s","room_id":"room-1"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed allocation status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/students/s/allocation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("allocation status = %d", rec.Code)
	}
	var alloc domain.Allocation
	if err := json.Unmarshal(rec.Body.Bytes(), &alloc); err != nil {
		t.Fatalf("decoding allocation: %v", err)
	}
	if alloc.RoomID != "room-1" {
		t.Errorf("allocation room = %s, want room-1", alloc.RoomID)
	}
}
