package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

type SQLAllocationRepository struct {
	db *sql.DB
}

var _ ports.AllocationRepository = (*SQLAllocationRepository)(nil)

func NewSQLAllocationRepository(db *sql.DB) *SQLAllocationRepository {
	return &SQLAllocationRepository{db: db}
}

func (r *SQLAllocationRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE room_id = $1",
		roomID,
	).Scan(&room.ID, &room.HostelID, &room.UnitID, &room.RoomNumber, &room.Capacity, &room.Status, &room.Occupancy)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *SQLAllocationRepository) ListRooms(ctx context.Context, hostelID string) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE hostel_id = $1 ORDER BY room_number",
		hostelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.HostelID, &room.UnitID, &room.RoomNumber, &room.Capacity, &room.Status, &room.Occupancy); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *SQLAllocationRepository) GetAllocation(ctx context.Context, allocationID string) (*domain.Allocation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE allocation_id = $1",
		allocationID,
	)
	alloc, err := scanAllocation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAllocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

func (r *SQLAllocationRepository) ActiveAllocationsForRoom(ctx context.Context, roomID string) ([]domain.Allocation, error) {
	return r.queryAllocations(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE room_id = $1 AND status = $2 ORDER BY bed_number",
		roomID, domain.AllocationActive,
	)
}

func (r *SQLAllocationRepository) ActiveAllocationForStudent(ctx context.Context, studentID string) (*domain.Allocation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE student_id = $1 AND status = $2",
		studentID, domain.AllocationActive,
	)
	alloc, err := scanAllocation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoActiveAllocation
	}
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

func (r *SQLAllocationRepository) AllocationHistoryForStudent(ctx context.Context, studentID string) ([]domain.Allocation, error) {
	return r.queryAllocations(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE student_id = $1 ORDER BY created_at DESC",
		studentID,
	)
}

// CreateAllocation validates status, capacity, bed and student uniqueness
// under the room's row lock, then records the allocation, bumps occupancy and
// writes the outbox event in one transaction.
func (r *SQLAllocationRepository) CreateAllocation(ctx context.Context, alloc domain.Allocation, outboxPayload []byte) (*domain.Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	room, err := lockRoomTx(ctx, tx, alloc.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrRoomInactive
	}

	occupied, err := activeBedsTx(ctx, tx, room.ID)
	if err != nil {
		return nil, err
	}
	if err := checkLedgerTx(room, occupied); err != nil {
		return nil, err
	}
	if !domain.CanAccept(room) {
		return nil, domain.ErrRoomFull
	}
	if !domain.ValidBed(room, alloc.BedNumber) {
		return nil, domain.ErrBedOutOfRange
	}
	for _, b := range occupied {
		if b == alloc.BedNumber {
			return nil, domain.ErrBedTaken
		}
	}

	taken, err := studentHasActiveTx(ctx, tx, alloc.StudentID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrStudentAlreadyAllocated
	}

	alloc.Status = domain.AllocationActive
	if err := insertAllocationTx(ctx, tx, &alloc); err != nil {
		return nil, err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomAllocated, outboxPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &alloc, nil
}

// EndAllocation closes an active allocation under its room's lock.
func (r *SQLAllocationRepository) EndAllocation(ctx context.Context, allocationID string, outboxPayload []byte) (*domain.Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Read first to learn the room, then take the room lock before touching
	// the allocation row. Writers always lock the room first.
	var roomID string
	err = tx.QueryRowContext(ctx,
		"SELECT room_id FROM allocations WHERE allocation_id = $1",
		allocationID,
	).Scan(&roomID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAllocationNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := lockRoomTx(ctx, tx, roomID); err != nil {
		return nil, err
	}

	endedAt := time.Now().UTC()
	if err := endAllocationTx(ctx, tx, allocationID, endedAt); err != nil {
		return nil, err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomDeallocated, outboxPayload); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE allocation_id = $1",
		allocationID,
	)
	alloc, err := scanAllocation(row.Scan)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return alloc, nil
}

// DeactivateRoom empties the room and marks it INACTIVE as one unit of work:
// either every occupant is deallocated and the status flips, or nothing
// happens.
func (r *SQLAllocationRepository) DeactivateRoom(ctx context.Context, roomID string, outboxPayload []byte) ([]domain.Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	room, err := lockRoomTx(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == domain.RoomInactive {
		return nil, domain.ErrInvalidStatusTransition
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE room_id = $1 AND status = $2 ORDER BY bed_number",
		roomID, domain.AllocationActive,
	)
	if err != nil {
		return nil, err
	}
	var occupants []domain.Allocation
	for rows.Next() {
		alloc, err := scanAllocation(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		occupants = append(occupants, *alloc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	endedAt := time.Now().UTC()
	for i := range occupants {
		if err := endAllocationTx(ctx, tx, occupants[i].ID, endedAt); err != nil {
			return nil, err
		}
		occupants[i].Status = domain.AllocationEnded
		occupants[i].EndedAt = &endedAt
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET status = $1 WHERE room_id = $2",
		domain.RoomInactive, roomID,
	); err != nil {
		return nil, err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomDeactivated, outboxPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return occupants, nil
}

// ActivateRoom flips an inactive room back to ACTIVE. No capacity side
// effects.
func (r *SQLAllocationRepository) ActivateRoom(ctx context.Context, roomID string, outboxPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	room, err := lockRoomTx(ctx, tx, roomID)
	if err != nil {
		return err
	}
	if room.Status == domain.RoomActive {
		return domain.ErrInvalidStatusTransition
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET status = $1 WHERE room_id = $2",
		domain.RoomActive, roomID,
	); err != nil {
		return err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomActivated, outboxPayload); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLAllocationRepository) queryAllocations(ctx context.Context, query string, args ...any) ([]domain.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocs []domain.Allocation
	for rows.Next() {
		alloc, err := scanAllocation(rows.Scan)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, *alloc)
	}
	return allocs, rows.Err()
}
