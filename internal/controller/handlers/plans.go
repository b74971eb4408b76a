package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mesplane/internal/batch"
	"mesplane/internal/logger"
	"mesplane/internal/plant"
	"mesplane/internal/routing"
	"mesplane/pkg/api"
)

// GetPlan handles GET /plans/{productType}.
// It previews the shortest manufacturing plan without reserving anything.
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	productType, err := strconv.Atoi(r.PathValue("productType"))
	if err != nil {
		h.httpError(w, "Invalid product type", http.StatusBadRequest)
		return
	}

	plan, err := h.plant.PlanFor(productType)
	if err != nil {
		if errors.Is(err, routing.ErrRouteNotFound) {
			h.httpError(w, fmt.Sprintf("No manufacturing plan found for %s", routing.ProductNode(productType)), http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to compute plan", http.StatusInternalServerError)
		return
	}

	resp := api.PlanResponse{
		ProductType: productType,
		Target:      plan.Target,
		Operations:  make([]api.Operation, 0, len(plan.Operations)),
		TotalTime:   plan.Total(),
	}
	for _, op := range plan.Operations {
		resp.Operations = append(resp.Operations, batch.OperationToAPI(op))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// CreateSchedule handles POST /schedules.
// It runs the batch scheduler over a fresh pool; the live online pool is
// left untouched.
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ScheduleRequest
	if !h.decodeJson(w, r, &req) {
		return
	}
	if len(req.Orders) == 0 {
		h.httpError(w, "At least one order is required", http.StatusBadRequest)
		return
	}

	orders := batch.OrdersFromAPI(req.Orders)
	if err := plant.ValidateOrders(orders); err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pool, err := h.plant.NewPool()
	if err != nil {
		h.httpError(w, "Failed to build machine pool", http.StatusInternalServerError)
		return
	}

	log := logger.FromContext(ctx, h.logger)
	result := batch.New(h.plant.Network, h.plant.RawMaterials, pool, batch.WithLogger(log)).Schedule(orders)
	h.metrics.RecordMakespan(ctx, result.Makespan)

	log.Info("batch schedule computed",
		"orders", len(orders),
		"instances", len(result.Instances),
		"makespan", result.Makespan,
		"stalled", result.Stalled,
	)
	h.respondJson(w, http.StatusOK, batch.ToAPI(result))
}

// ListMachines handles GET /machines.
// It returns a snapshot of the live pool used by online requests.
func (h *Handlers) ListMachines(w http.ResponseWriter, r *http.Request) {
	states := h.pool.Snapshot()
	resp := make([]api.MachineResponse, 0, len(states))
	for _, s := range states {
		resp = append(resp, api.MachineResponse{
			Name:        s.Name,
			Role:        string(s.Role),
			Partner:     s.Partner,
			Tools:       s.Tools,
			CurrentTool: s.CurrentTool,
			BusyUntil:   s.BusyUntil,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}
