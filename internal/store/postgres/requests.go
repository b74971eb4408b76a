package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mesplane/internal/store"
)

func (s *Store) CreateRequest(ctx context.Context, req *store.Request) error {
	query := `
		INSERT INTO requests (id, correlation_id, product_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, req.ID, req.CorrelationID, req.ProductType, req.Status, req.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("request %s: %w", req.ID, store.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*store.Request, error) {
	query := `
		SELECT id, correlation_id, product_type, status, error_message, created_at, completed_at
		FROM requests WHERE id = $1
	`

	var req store.Request
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.CorrelationID, &req.ProductType, &req.Status,
		&req.ErrorMessage, &req.CreatedAt, &req.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (s *Store) AddReservation(ctx context.Context, res *store.Reservation) error {
	query := `
		INSERT INTO reservations (
			request_id, step, from_piece, to_piece, tool, duration,
			machine, start_time, end_time, tool_changed,
			pass_machine, pass_start, pass_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var passMachine sql.NullString
	var passStart, passEnd sql.NullInt64
	if res.PassThroughMachine != "" {
		passMachine = sql.NullString{String: res.PassThroughMachine, Valid: true}
		passStart = sql.NullInt64{Int64: int64(res.PassThroughStart), Valid: true}
		passEnd = sql.NullInt64{Int64: int64(res.PassThroughEnd), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		res.RequestID, res.Step, res.FromPiece, res.ToPiece, res.Tool, res.Duration,
		res.Machine, res.Start, res.End, res.ToolChanged,
		passMachine, passStart, passEnd,
	)
	return err
}

func (s *Store) ListReservations(ctx context.Context, requestID string) ([]store.Reservation, error) {
	query := `
		SELECT request_id, step, from_piece, to_piece, tool, duration,
			machine, start_time, end_time, tool_changed,
			pass_machine, pass_start, pass_end
		FROM reservations WHERE request_id = $1
		ORDER BY step ASC
	`

	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Reservation
	for rows.Next() {
		var r store.Reservation
		var passMachine sql.NullString
		var passStart, passEnd sql.NullInt64
		if err := rows.Scan(
			&r.RequestID, &r.Step, &r.FromPiece, &r.ToPiece, &r.Tool, &r.Duration,
			&r.Machine, &r.Start, &r.End, &r.ToolChanged,
			&passMachine, &passStart, &passEnd,
		); err != nil {
			return nil, err
		}
		if passMachine.Valid {
			r.PassThroughMachine = passMachine.String
			r.PassThroughStart = int(passStart.Int64)
			r.PassThroughEnd = int(passEnd.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) FinishRequest(ctx context.Context, id string, status store.RequestStatus, errMsg *string, at time.Time) error {
	query := `
		UPDATE requests
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, status, errMsg, at, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
