// Package store contains the request ledger for mesplane.
package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a request id is already taken.
	ErrDuplicate = errors.New("already exists")
)

// RequestStatus represents the state of an online request.
type RequestStatus string

const (
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusFailed     RequestStatus = "failed"
)

// Request is one accepted production request.
type Request struct {
	ID            string
	CorrelationID string
	ProductType   int
	Status        RequestStatus
	ErrorMessage  *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Reservation is one committed machine reservation of a request.
// PassThroughMachine is empty when the step ran on a primary machine.
type Reservation struct {
	RequestID          string
	Step               int
	FromPiece          string
	ToPiece            string
	Tool               string
	Duration           int
	Machine            string
	Start              int
	End                int
	ToolChanged        bool
	PassThroughMachine string
	PassThroughStart   int
	PassThroughEnd     int
}
