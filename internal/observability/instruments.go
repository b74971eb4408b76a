package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the synchronous instruments recorded by the scheduler
// paths. A nil *Instruments records nothing.
type Instruments struct {
	requests     metric.Int64Counter
	reservations metric.Int64Counter
	makespan     metric.Int64Histogram
}

// NewInstruments creates the instruments on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	requests, err := meter.Int64Counter("mesplane.requests",
		metric.WithDescription("Finished online requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	reservations, err := meter.Int64Counter("mesplane.reservations",
		metric.WithDescription("Committed machine reservations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservations counter: %w", err)
	}

	makespan, err := meter.Int64Histogram("mesplane.batch.makespan",
		metric.WithDescription("Makespan of batch scheduling runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create makespan histogram: %w", err)
	}

	return &Instruments{requests: requests, reservations: reservations, makespan: makespan}, nil
}

// RecordRequest counts one finished request.
func (i *Instruments) RecordRequest(ctx context.Context, status string) {
	if i == nil {
		return
	}
	i.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordReservation counts one committed reservation.
func (i *Instruments) RecordReservation(ctx context.Context, machine string, toolChanged bool) {
	if i == nil {
		return
	}
	i.reservations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("machine", machine),
		attribute.Bool("tool_changed", toolChanged),
	))
}

// RecordMakespan records the makespan of one batch run.
func (i *Instruments) RecordMakespan(ctx context.Context, seconds int) {
	if i == nil {
		return
	}
	i.makespan.Record(ctx, int64(seconds))
}

// RegisterGauges registers the observable gauges. They are evaluated only
// when scraped.
func RegisterGauges(meter metric.Meter, inFlight func() int64, busyUntil func() map[string]int64) error {
	_, err := meter.Int64ObservableGauge("mesplane.requests.inflight",
		metric.WithDescription("Requests currently being processed"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(inFlight())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register inflight gauge: %w", err)
	}

	_, err = meter.Int64ObservableGauge("mesplane.machine.busy_until",
		metric.WithDescription("Simulated time until which each machine is reserved"),
		metric.WithUnit("s"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			for name, t := range busyUntil() {
				obs.Observe(t, metric.WithAttributes(attribute.String("machine", name)))
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register busy_until gauge: %w", err)
	}
	return nil
}
