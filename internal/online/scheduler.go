// Package online routes single production requests through the shared
// machine pool as they arrive, one operation at a time.
package online

import (
	"context"
	"fmt"

	"mesplane/internal/machine"
	"mesplane/internal/routing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Assignment is one committed reservation for one operation.
type Assignment struct {
	Operation   routing.Operation
	Machine     string
	Start       int
	End         int
	ToolChanged bool
	PassThrough *machine.Window
}

// Scheduler reserves machine time on a pool shared by all requests.
// It is safe for concurrent use.
type Scheduler struct {
	pool *machine.Pool
}

// New creates a scheduler over a long-lived pool.
func New(pool *machine.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Pool returns the shared pool.
func (s *Scheduler) Pool() *machine.Pool { return s.pool }

// Advance reserves one operation that may not start before cursor, the end
// of the previous operation of the same plan.
func (s *Scheduler) Advance(ctx context.Context, op routing.Operation, cursor int) (Assignment, error) {
	_, span := otel.Tracer("mesplane-online").Start(ctx, "reserve_operation",
		trace.WithAttributes(
			attribute.String("operation", op.String()),
			attribute.String("tool", op.Tool),
			attribute.Int("cursor", cursor),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Assignment{}, err
	}

	q, err := s.pool.Reserve(op.Tool, cursor, op.Duration, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assignment{}, fmt.Errorf("operation %s: %w", op, err)
	}

	span.SetAttributes(
		attribute.String("machine", q.Machine),
		attribute.Int("start", q.Start),
		attribute.Int("end", q.End),
		attribute.Bool("tool_changed", q.ToolChanged),
	)

	return Assignment{
		Operation:   op,
		Machine:     q.Machine,
		Start:       q.Start,
		End:         q.End,
		ToolChanged: q.ToolChanged,
		PassThrough: q.PassThrough,
	}, nil
}

// StepFunc is called after each reservation, before the next one is made.
// Returning an error stops the plan.
type StepFunc func(ctx context.Context, a Assignment) error

// Run advances through every operation of a plan in order, starting the
// cursor at zero. Reservations already committed when a step fails are kept.
func (s *Scheduler) Run(ctx context.Context, plan routing.Plan, step StepFunc) ([]Assignment, error) {
	cursor := 0
	out := make([]Assignment, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		a, err := s.Advance(ctx, op, cursor)
		if err != nil {
			return out, err
		}
		out = append(out, a)
		cursor = a.End

		if step != nil {
			if err := step(ctx, a); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}
