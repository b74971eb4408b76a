// Package memory implements the store interfaces in process memory.
// It is used when no database is configured and is meant for development:
// only the most recent finished requests are retained.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mesplane/internal/store"
)

// DefaultMaxFinished is how many finished requests a Store keeps by default.
const DefaultMaxFinished = 10000

// Store is a mutex-guarded in-memory ledger.
type Store struct {
	mu           sync.RWMutex
	requests     map[string]store.Request
	reservations map[string][]store.Reservation

	maxFinished int
	finished    []string // oldest first
}

// Option configures a Store.
type Option func(*Store)

// WithMaxFinished caps the number of finished requests kept. Once the cap is
// exceeded the oldest finished request and its reservations are dropped, and
// its id may be accepted again. Requests still processing are never dropped.
func WithMaxFinished(n int) Option {
	return func(s *Store) { s.maxFinished = n }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		requests:     make(map[string]store.Request),
		reservations: make(map[string][]store.Reservation),
		maxFinished:  DefaultMaxFinished,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxFinished < 1 {
		s.maxFinished = 1
	}
	return s
}

func (s *Store) CreateRequest(ctx context.Context, req *store.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("request %s: %w", req.ID, store.ErrDuplicate)
	}
	s.requests[req.ID] = *req
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*store.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &req, nil
}

func (s *Store) AddReservation(ctx context.Context, res *store.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[res.RequestID]; !ok {
		return fmt.Errorf("request %s: %w", res.RequestID, store.ErrNotFound)
	}
	s.reservations[res.RequestID] = append(s.reservations[res.RequestID], *res)
	return nil
}

func (s *Store) ListReservations(ctx context.Context, requestID string) ([]store.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]store.Reservation(nil), s.reservations[requestID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func (s *Store) FinishRequest(ctx context.Context, id string, status store.RequestStatus, errMsg *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	firstFinish := req.CompletedAt == nil
	req.Status = status
	req.ErrorMessage = errMsg
	req.CompletedAt = &at
	s.requests[id] = req

	if firstFinish {
		s.finished = append(s.finished, id)
		for len(s.finished) > s.maxFinished {
			oldest := s.finished[0]
			s.finished = s.finished[1:]
			delete(s.requests, oldest)
			delete(s.reservations, oldest)
		}
	}
	return nil
}

// Len returns the number of requests currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}
