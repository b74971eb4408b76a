package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"mesplane/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func TestCreateRequest_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO requests`).
		WithArgs("req-1", "corr-1", 5, store.RequestStatusProcessing, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateRequest(context.Background(), &store.Request{
		ID: "req-1", CorrelationID: "corr-1", ProductType: 5,
		Status: store.RequestStatusProcessing, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateRequest_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO requests`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.CreateRequest(context.Background(), &store.Request{ID: "req-1"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateRequest_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO requests`).WillReturnError(sql.ErrConnDone)

	err := s.CreateRequest(context.Background(), &store.Request{ID: "req-1"})
	if err == nil || errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected plain database error, got %v", err)
	}
}

func TestGetRequest_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	created := time.Now().Add(-time.Minute)
	completed := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM requests WHERE id = \$1`).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "correlation_id", "product_type", "status", "error_message", "created_at", "completed_at",
		}).AddRow("req-1", "corr-1", 7, "completed", nil, created, completed))

	req, err := s.GetRequest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if req.ProductType != 7 || req.Status != store.RequestStatusCompleted {
		t.Errorf("unexpected request %+v", req)
	}
	if req.ErrorMessage != nil {
		t.Errorf("expected nil error message, got %v", *req.ErrorMessage)
	}
	if req.CompletedAt == nil || !req.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v", req.CompletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM requests WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.GetRequest(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddReservation_PassThrough(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs("req-1", 1, "P1", "P3", "T1", 20, "M1b", 35, 55, true, "M1a", int64(0), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AddReservation(context.Background(), &store.Reservation{
		RequestID: "req-1", Step: 1, FromPiece: "P1", ToPiece: "P3", Tool: "T1", Duration: 20,
		Machine: "M1b", Start: 35, End: 55, ToolChanged: true,
		PassThroughMachine: "M1a", PassThroughStart: 0, PassThroughEnd: 5,
	})
	if err != nil {
		t.Fatalf("AddReservation failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAddReservation_Primary(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs("req-1", 1, "P1", "P3", "T1", 20, "M1a", 30, 50, true, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AddReservation(context.Background(), &store.Reservation{
		RequestID: "req-1", Step: 1, FromPiece: "P1", ToPiece: "P3", Tool: "T1", Duration: 20,
		Machine: "M1a", Start: 30, End: 50, ToolChanged: true,
	})
	if err != nil {
		t.Fatalf("AddReservation failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListReservations(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	cols := []string{
		"request_id", "step", "from_piece", "to_piece", "tool", "duration",
		"machine", "start_time", "end_time", "tool_changed",
		"pass_machine", "pass_start", "pass_end",
	}
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE request_id = \$1`).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("req-1", 1, "P1", "P3", "T1", 20, "M1b", 35, 55, true, "M1a", 0, 5).
			AddRow("req-1", 2, "P3", "P4", "T2", 20, "M1a", 55, 105, true, nil, nil, nil))

	res, err := s.ListReservations(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(res))
	}
	if res[0].PassThroughMachine != "M1a" || res[0].PassThroughEnd != 5 {
		t.Errorf("first reservation = %+v", res[0])
	}
	if res[1].PassThroughMachine != "" || res[1].Start != 55 {
		t.Errorf("second reservation = %+v", res[1])
	}
}

func TestFinishRequest(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	at := time.Now()
	msg := "simulated PLC error"
	mock.ExpectExec(`UPDATE requests`).
		WithArgs(store.RequestStatusFailed, &msg, at, "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.FinishRequest(context.Background(), "req-1", store.RequestStatusFailed, &msg, at); err != nil {
		t.Fatalf("FinishRequest failed: %v", err)
	}

	mock.ExpectExec(`UPDATE requests`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.FinishRequest(context.Background(), "missing", store.RequestStatusCompleted, nil, at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
