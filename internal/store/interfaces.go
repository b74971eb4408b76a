package store

import (
	"context"
	"time"
)

// RequestStore records online requests and the reservations committed for
// them. It is an audit trail; machine state is never rebuilt from it.
type RequestStore interface {
	// CreateRequest inserts a new request. It returns ErrDuplicate when the
	// id is taken.
	CreateRequest(ctx context.Context, req *Request) error

	// GetRequest returns a request by its id, or ErrNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// AddReservation appends a committed reservation to a request.
	AddReservation(ctx context.Context, res *Reservation) error

	// ListReservations returns a request's reservations in step order.
	ListReservations(ctx context.Context, requestID string) ([]Reservation, error)

	// FinishRequest sets the terminal status of a request.
	FinishRequest(ctx context.Context, id string, status RequestStatus, errMsg *string, at time.Time) error

	// Ping checks that the ledger is reachable.
	Ping(ctx context.Context) error
}
