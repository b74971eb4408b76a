package batch

import (
	"mesplane/internal/machine"
	"mesplane/internal/routing"
	"mesplane/pkg/api"
)

// OrdersFromAPI converts wire orders into scheduler orders.
func OrdersFromAPI(in []api.Order) []Order {
	out := make([]Order, 0, len(in))
	for _, o := range in {
		order := Order{ID: o.OrderID, Client: o.Client, NIF: o.NIF}
		for _, l := range o.Lines {
			order.Lines = append(order.Lines, OrderLine{
				ProductType: l.ProductType,
				Quantity:    l.Quantity,
				DueDate:     l.DueDate,
				Penalty:     l.Penalty,
			})
		}
		out = append(out, order)
	}
	return out
}

// ToAPI converts a run result into its wire form.
func ToAPI(r Result) api.ScheduleResponse {
	resp := api.ScheduleResponse{
		Events:    make([]api.EventResponse, 0, len(r.Events)),
		Instances: make([]api.InstanceResponse, 0, len(r.Instances)),
		Makespan:  r.Makespan,
		Stalled:   r.Stalled,
	}
	for _, e := range r.Events {
		resp.Events = append(resp.Events, api.EventResponse{
			TaskID:      e.TaskID,
			InstanceID:  e.InstanceID,
			Machine:     e.Machine,
			Start:       e.Start,
			End:         e.End,
			Operation:   OperationToAPI(e.Operation),
			ToolChanged: e.ToolChanged,
			PassThrough: WindowToAPI(e.PassThrough),
		})
	}
	for _, p := range r.Instances {
		resp.Instances = append(resp.Instances, api.InstanceResponse{
			ID:             p.ID,
			OrderID:        p.OrderID,
			ProductType:    p.ProductType,
			DueDate:        p.DueDate,
			Penalty:        p.Penalty,
			Status:         string(p.Status),
			CompletionTime: p.CompletionTime,
			Tardiness:      p.Tardiness(),
			Tasks:          len(p.Tasks),
			CompletedTasks: p.CompletedTasks(),
		})
	}
	s := Summarize(r)
	resp.Stats = api.ScheduleStats{
		Total:             s.Total,
		Completed:         s.Completed,
		Late:              s.Late,
		Incomplete:        s.Incomplete,
		NoPlan:            s.NoPlan,
		WeightedTardiness: s.WeightedTardiness,
	}
	return resp
}

// OperationToAPI converts an operation into its wire form.
func OperationToAPI(op routing.Operation) api.Operation {
	return api.Operation{From: op.From, To: op.To, Tool: op.Tool, Duration: op.Duration}
}

// WindowToAPI converts an optional window into its wire form.
func WindowToAPI(w *machine.Window) *api.Window {
	if w == nil {
		return nil
	}
	return &api.Window{Machine: w.Machine, Start: w.Start, End: w.End}
}
