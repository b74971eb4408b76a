// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"mesplane/internal/machine"
	"mesplane/internal/observability"
	"mesplane/internal/plant"
	"mesplane/internal/store"
	"mesplane/internal/worker"
	"mesplane/pkg/api"
)

// Submitter accepts online requests for background processing.
type Submitter interface {
	Submit(ctx context.Context, job worker.Job) error
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Agent   Submitter
	Ledger  store.RequestStore
	Plant   *plant.Plant
	Pool    *machine.Pool // live pool shared by online requests
	Metrics *observability.Instruments
	Logger  *slog.Logger
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	agent   Submitter
	ledger  store.RequestStore
	plant   *plant.Plant
	pool    *machine.Pool
	metrics *observability.Instruments
	logger  *slog.Logger
}

// New creates a new Handlers instance with the given dependencies.
func New(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handlers{
		agent:   d.Agent,
		ledger:  d.Ledger,
		plant:   d.Plant,
		pool:    d.Pool,
		metrics: d.Metrics,
		logger:  d.Logger,
	}
}

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJson reads a bounded JSON body into v. On failure it writes the
// error response and returns false.
func (h *Handlers) decodeJson(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.httpError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
