package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/domain"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/ports"
)

const requestColumns = "request_id, student_id, hostel_id, current_room_id, requested_room_id, bed_number, status, reason, rejection_reason, created_at, decided_at"

type SQLRoomChangeRepository struct {
	db *sql.DB
}

var _ ports.RoomChangeRepository = (*SQLRoomChangeRepository)(nil)

func NewSQLRoomChangeRepository(db *sql.DB) *SQLRoomChangeRepository {
	return &SQLRoomChangeRepository{db: db}
}

func (r *SQLRoomChangeRepository) CreateRequest(ctx context.Context, req domain.RoomChangeRequest) (*domain.RoomChangeRequest, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_change_requests
		 (request_id, student_id, hostel_id, current_room_id, requested_room_id, bed_number, status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)`,
		req.ID, req.StudentID, req.HostelID, req.CurrentRoomID, req.RequestedRoomID, req.Status, req.Reason, req.CreatedAt,
	)
	if err != nil {
		return nil, translateUniqueViolation(err)
	}
	return &req, nil
}

func (r *SQLRoomChangeRepository) GetRequest(ctx context.Context, requestID string) (*domain.RoomChangeRequest, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM room_change_requests WHERE request_id = $1",
		requestID,
	)
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *SQLRoomChangeRepository) ListRequests(ctx context.Context, hostelID string, filters ports.RequestFilters) ([]domain.RoomChangeRequest, error) {
	query := "SELECT " + requestColumns + " FROM room_change_requests WHERE hostel_id = $1"
	args := []any{hostelID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.StudentID != "" {
		args = append(args, filters.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.RoomChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// ApproveRequest performs the move as one transaction: lock the request, lock
// both rooms in room-id order, re-validate capacity and the chosen bed on the
// requested room, end the student's current allocation, create the new one
// and flip the request to APPROVED. Any failure rolls the whole move back,
// leaving the student's original allocation intact and the request pending.
func (r *SQLRoomChangeRepository) ApproveRequest(ctx context.Context, requestID string, bedNumber int, outboxPayload []byte) (*domain.Allocation, error) {
	if bedNumber < 1 {
		return nil, domain.ErrBedSelectionRequired
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := lockRequestTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	// The student's live allocation decides the source room; the snapshot on
	// the request may be stale if a warden moved them while it was pending.
	row := tx.QueryRowContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE student_id = $1 AND status = $2",
		req.StudentID, domain.AllocationActive,
	)
	current, err := scanAllocation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoActiveAllocation
	}
	if err != nil {
		return nil, err
	}

	_, dest, err := lockRoomsOrdered(ctx, tx, current.RoomID, req.RequestedRoomID)
	if err != nil {
		return nil, err
	}

	occupied, err := activeBedsTx(ctx, tx, dest.ID)
	if err != nil {
		return nil, err
	}
	if err := checkLedgerTx(dest, occupied); err != nil {
		return nil, err
	}
	if !domain.CanAccept(dest) {
		return nil, domain.ErrRequestedRoomUnavailable
	}
	if !domain.ValidBed(dest, bedNumber) {
		return nil, domain.ErrBedSelectionRequired
	}
	for _, b := range occupied {
		if b == bedNumber {
			return nil, domain.ErrBedSelectionRequired
		}
	}

	decidedAt := time.Now().UTC()
	if err := endAllocationTx(ctx, tx, current.ID, decidedAt); err != nil {
		return nil, err
	}

	alloc := domain.Allocation{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		RoomID:    dest.ID,
		BedNumber: bedNumber,
		Status:    domain.AllocationActive,
		CreatedAt: decidedAt,
	}
	if err := insertAllocationTx(ctx, tx, &alloc); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE room_change_requests SET status = $1, bed_number = $2, decided_at = $3 WHERE request_id = $4",
		domain.RequestApproved, bedNumber, decidedAt, requestID,
	); err != nil {
		return nil, err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomChangeApproved, outboxPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &alloc, nil
}

// RejectRequest finalizes a pending request without touching allocations.
func (r *SQLRoomChangeRepository) RejectRequest(ctx context.Context, requestID, rejectionReason string, outboxPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req, err := lockRequestTx(ctx, tx, requestID)
	if err != nil {
		return err
	}
	if req.Status != domain.RequestPending {
		return domain.ErrRequestNotPending
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE room_change_requests SET status = $1, rejection_reason = $2, decided_at = $3 WHERE request_id = $4",
		domain.RequestRejected, rejectionReason, time.Now().UTC(), requestID,
	); err != nil {
		return err
	}
	if err := insertOutboxTx(ctx, tx, ports.EventRoomChangeRejected, outboxPayload); err != nil {
		return err
	}
	return tx.Commit()
}

func lockRequestTx(ctx context.Context, tx *sql.Tx, requestID string) (*domain.RoomChangeRequest, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM room_change_requests WHERE request_id = $1 FOR UPDATE",
		requestID,
	)
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanRequest(scan func(dest ...any) error) (*domain.RoomChangeRequest, error) {
	var req domain.RoomChangeRequest
	var rejection sql.NullString
	var decidedAt sql.NullTime
	if err := scan(&req.ID, &req.StudentID, &req.HostelID, &req.CurrentRoomID, &req.RequestedRoomID, &req.BedNumber, &req.Status, &req.Reason, &rejection, &req.CreatedAt, &decidedAt); err != nil {
		return nil, err
	}
	if rejection.Valid {
		req.RejectionReason = rejection.String
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return &req, nil
}
