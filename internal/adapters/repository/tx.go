package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
)

// Transaction helpers shared by the allocation and room change repositories.
// The discipline: every occupancy mutation locks the affected room row(s)
// first, in room-id order when more than one room is involved, and only then
// touches allocation rows. The partial unique indexes on allocations are a
// backstop; violations are translated back into the domain's conflict errors.

// errLedgerMismatch signals that a room's occupancy counter disagrees with
// the count of active allocations. It aborts the transaction; it should never
// occur while the locking discipline holds.
var errLedgerMismatch = errors.New("occupancy counter disagrees with allocation ledger")

const roomColumns = "room_id, hostel_id, unit_id, room_number, capacity, status, current_occupancy"

const allocationColumns = "allocation_id, student_id, room_id, bed_number, status, created_at, ended_at"

// lockRoomTx loads a room under FOR UPDATE, serializing all occupancy
// mutations for that room.
func lockRoomTx(ctx context.Context, tx *sql.Tx, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := tx.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE room_id = $1 FOR UPDATE",
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

// lockRoomsOrdered locks two rooms in room-id order to avoid deadlock between
// concurrent cross-room moves.
func lockRoomsOrdered(ctx context.Context, tx *sql.Tx, firstID, secondID string) (*domain.Room, *domain.Room, error) {
	if firstID == secondID {
		room, err := lockRoomTx(ctx, tx, firstID)
		return room, room, err
	}
	a, b := firstID, secondID
	if b < a {
		a, b = b, a
	}
	lockedA, err := lockRoomTx(ctx, tx, a)
	if err != nil {
		return nil, nil, err
	}
	lockedB, err := lockRoomTx(ctx, tx, b)
	if err != nil {
		return nil, nil, err
	}
	if lockedA.ID == firstID {
		return lockedA, lockedB, nil
	}
	return lockedB, lockedA, nil
}

// activeBedsTx returns the occupied bed numbers for a room, ascending. Must
// run after the room row is locked.
func activeBedsTx(ctx context.Context, tx *sql.Tx, roomID string) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT bed_number FROM allocations WHERE room_id = $1 AND status = $2 ORDER BY bed_number",
		roomID, domain.AllocationActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beds []int
	for rows.Next() {
		var bed int
		if err := rows.Scan(&bed); err != nil {
			return nil, err
		}
		beds = append(beds, bed)
	}
	return beds, rows.Err()
}

// studentHasActiveTx reports whether the student already holds an active
// allocation anywhere.
func studentHasActiveTx(ctx context.Context, tx *sql.Tx, studentID string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM allocations WHERE student_id = $1 AND status = $2)",
		studentID, domain.AllocationActive,
	).Scan(&exists)
	return exists, err
}

// insertAllocationTx writes an active allocation and bumps the room's
// occupancy counter. The caller has already locked the room and validated
// capacity, status and the bed.
func insertAllocationTx(ctx context.Context, tx *sql.Tx, alloc *domain.Allocation) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO allocations (allocation_id, student_id, room_id, bed_number, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		alloc.ID, alloc.StudentID, alloc.RoomID, alloc.BedNumber, alloc.Status, alloc.CreatedAt,
	)
	if err != nil {
		return translateUniqueViolation(err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE rooms SET current_occupancy = current_occupancy + 1 WHERE room_id = $1",
		alloc.RoomID,
	)
	return err
}

// endAllocationTx closes an active allocation and decrements occupancy. The
// caller has already locked the allocation's room.
func endAllocationTx(ctx context.Context, tx *sql.Tx, allocationID string, endedAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE allocations SET status = $1, ended_at = $2 WHERE allocation_id = $3 AND status = $4",
		domain.AllocationEnded, endedAt, allocationID, domain.AllocationActive,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAllocationEnded
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE rooms SET current_occupancy = current_occupancy - 1 WHERE room_id = (SELECT room_id FROM allocations WHERE allocation_id = $1)",
		allocationID,
	)
	return err
}

// insertOutboxTx records an event in the same transaction as the mutation it
// describes. An insert trigger on outbox_events issues the NOTIFY picked up
// by the relay.
func insertOutboxTx(ctx context.Context, tx *sql.Tx, eventType string, payload []byte) error {
	if payload == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO outbox_events (id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())",
		uuid.NewString(), eventType, payload,
	)
	return err
}

// checkLedgerTx verifies the locked room's occupancy counter against the
// ledger before a mutation proceeds.
func checkLedgerTx(room *domain.Room, occupiedBeds []int) error {
	if room.Occupancy != len(occupiedBeds) {
		return fmt.Errorf("room %s: %w (counter=%d ledger=%d)", room.ID, errLedgerMismatch, room.Occupancy, len(occupiedBeds))
	}
	return nil
}

// translateUniqueViolation maps the backstop unique indexes onto domain
// conflict errors.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "allocations_active_bed_idx":
			return domain.ErrBedTaken
		case "allocations_active_student_idx":
			return domain.ErrStudentAlreadyAllocated
		case "room_change_requests_pending_idx":
			return domain.ErrDuplicatePendingRequest
		}
	}
	return err
}

func scanAllocation(scan func(dest ...any) error) (*domain.Allocation, error) {
	var alloc domain.Allocation
	var endedAt sql.NullTime
	if err := scan(&alloc.ID, &alloc.StudentID, &alloc.RoomID, &alloc.BedNumber, &alloc.Status, &alloc.CreatedAt, &endedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		alloc.EndedAt = &endedAt.Time
	}
	return &alloc, nil
}
