// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// Callback statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ProcessStepRequest is the request body for routing one product online.
// Pointers distinguish missing fields from zero values.
type ProcessStepRequest struct {
	RequestID         *string `json:"requestId"`
	CorrelationID     *string `json:"correlationId"`
	TargetProductType *int    `json:"targetProductType"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// StepUpdate is the callback body sent once a request finishes.
type StepUpdate struct {
	RequestID     string    `json:"requestId"`
	CorrelationID string    `json:"correlationId"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
}

// Operation is one manufacturing step of a plan.
type Operation struct {
	From     string `json:"from_piece"`
	To       string `json:"to_piece"`
	Tool     string `json:"tool"`
	Duration int    `json:"duration"`
}

// PlanResponse is the response body for plan previews.
type PlanResponse struct {
	ProductType int         `json:"product_type"`
	Target      string      `json:"target"`
	Operations  []Operation `json:"operations"`
	TotalTime   int         `json:"total_time"`
}

// Window is a time span on a machine.
type Window struct {
	Machine string `json:"machine"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// ReservationResponse represents a committed reservation.
type ReservationResponse struct {
	Step        int       `json:"step"`
	Operation   Operation `json:"operation"`
	Machine     string    `json:"machine"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	ToolChanged bool      `json:"tool_changed"`
	PassThrough *Window   `json:"pass_through,omitempty"`
}

// RequestStatusResponse is the response body for request status queries.
type RequestStatusResponse struct {
	RequestID     string                `json:"request_id"`
	CorrelationID string                `json:"correlation_id"`
	ProductType   int                   `json:"product_type"`
	Status        string                `json:"status"`
	Error         *string               `json:"error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	Reservations  []ReservationResponse `json:"reservations"`
}

// MachineResponse is the live state of one machine.
type MachineResponse struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Partner     string   `json:"partner,omitempty"`
	Tools       []string `json:"tools"`
	CurrentTool string   `json:"current_tool,omitempty"`
	BusyUntil   int      `json:"busy_until"`
}

// OrderLine is one line of a batch order.
type OrderLine struct {
	ProductType int     `json:"productType"`
	Quantity    int     `json:"quantity"`
	DueDate     int     `json:"dueDate"` // minutes
	Penalty     float64 `json:"penalty"`
}

// Order is a batch order.
type Order struct {
	OrderID string      `json:"orderId"`
	Client  string      `json:"client,omitempty"`
	NIF     string      `json:"nif,omitempty"`
	Lines   []OrderLine `json:"lines"`
}

// ScheduleRequest is the request body for a batch scheduling run.
type ScheduleRequest struct {
	Orders []Order `json:"orders"`
}

// EventResponse is one committed assignment of a batch run.
type EventResponse struct {
	TaskID      string    `json:"task_id"`
	InstanceID  string    `json:"instance_id"`
	Machine     string    `json:"machine"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Operation   Operation `json:"operation"`
	ToolChanged bool      `json:"tool_changed"`
	PassThrough *Window   `json:"pass_through,omitempty"`
}

// InstanceResponse is the outcome for one product instance.
type InstanceResponse struct {
	ID             string  `json:"id"`
	OrderID        string  `json:"order_id"`
	ProductType    string  `json:"product_type"`
	DueDate        int     `json:"due_date"`
	Penalty        float64 `json:"penalty"`
	Status         string  `json:"status"`
	CompletionTime int     `json:"completion_time"`
	Tardiness      int     `json:"tardiness"`
	Tasks          int     `json:"tasks"`
	CompletedTasks int     `json:"completed_tasks"`
}

// ScheduleStats summarises a batch run.
type ScheduleStats struct {
	Total             int     `json:"total"`
	Completed         int     `json:"completed"`
	Late              int     `json:"late"`
	Incomplete        int     `json:"incomplete"`
	NoPlan            int     `json:"no_plan"`
	WeightedTardiness float64 `json:"weighted_tardiness"`
}

// ScheduleResponse is the response body of a batch scheduling run.
type ScheduleResponse struct {
	Events    []EventResponse    `json:"events"`
	Instances []InstanceResponse `json:"instances"`
	Makespan  int                `json:"makespan"`
	Stalled   bool               `json:"stalled"`
	Stats     ScheduleStats      `json:"stats"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
