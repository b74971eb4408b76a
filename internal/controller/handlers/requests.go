package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"mesplane/internal/logger"
	"mesplane/internal/store"
	"mesplane/internal/worker"
	"mesplane/pkg/api"
)

const missingFieldsMessage = "Missing required fields (requestId, correlationId, targetProductType)"

// ProcessStep handles POST /process-step.
// It accepts one product for online routing and returns immediately;
// the outcome is reported later through the callback.
func (h *Handlers) ProcessStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ProcessStepRequest
	if !h.decodeJson(w, r, &req) {
		return
	}

	if req.RequestID == nil || *req.RequestID == "" ||
		req.CorrelationID == nil || *req.CorrelationID == "" ||
		req.TargetProductType == nil {
		h.httpError(w, missingFieldsMessage, http.StatusBadRequest)
		return
	}

	job := worker.Job{
		RequestID:     *req.RequestID,
		CorrelationID: *req.CorrelationID,
		ProductType:   *req.TargetProductType,
	}

	if err := h.agent.Submit(ctx, job); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			h.httpError(w, fmt.Sprintf("Request %s already accepted", job.RequestID), http.StatusConflict)
		case errors.Is(err, worker.ErrShuttingDown):
			h.httpError(w, "Service is shutting down", http.StatusServiceUnavailable)
		default:
			logger.FromContext(ctx, h.logger).Error("failed to accept request", "request", job.RequestID, "error", err)
			h.httpError(w, "Failed to accept request", http.StatusInternalServerError)
		}
		return
	}

	h.respondJson(w, http.StatusAccepted, api.MessageResponse{
		Message: "Processing initiated for request " + job.RequestID,
	})
}

// GetRequest handles GET /requests/{id}.
// It returns the ledger view of one request and its reservations.
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	req, err := h.ledger.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Request not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load request", http.StatusInternalServerError)
		return
	}

	reservations, err := h.ledger.ListReservations(ctx, id)
	if err != nil {
		h.httpError(w, "Failed to load reservations", http.StatusInternalServerError)
		return
	}

	resp := api.RequestStatusResponse{
		RequestID:     req.ID,
		CorrelationID: req.CorrelationID,
		ProductType:   req.ProductType,
		Status:        string(req.Status),
		Error:         req.ErrorMessage,
		CreatedAt:     req.CreatedAt,
		CompletedAt:   req.CompletedAt,
		Reservations:  make([]api.ReservationResponse, 0, len(reservations)),
	}
	for _, res := range reservations {
		item := api.ReservationResponse{
			Step: res.Step,
			Operation: api.Operation{
				From:     res.FromPiece,
				To:       res.ToPiece,
				Tool:     res.Tool,
				Duration: res.Duration,
			},
			Machine:     res.Machine,
			Start:       res.Start,
			End:         res.End,
			ToolChanged: res.ToolChanged,
		}
		if res.PassThroughMachine != "" {
			item.PassThrough = &api.Window{
				Machine: res.PassThroughMachine,
				Start:   res.PassThroughStart,
				End:     res.PassThroughEnd,
			}
		}
		resp.Reservations = append(resp.Reservations, item)
	}

	h.respondJson(w, http.StatusOK, resp)
}
