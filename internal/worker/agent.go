// Package worker runs accepted production requests in the background:
// route lookup, operation-by-operation reservation, step execution and the
// outcome callback.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mesplane/internal/logger"
	"mesplane/internal/machine"
	"mesplane/internal/notifier"
	"mesplane/internal/observability"
	"mesplane/internal/online"
	"mesplane/internal/routing"
	"mesplane/internal/store"
	"mesplane/internal/worker/runtime"
	"mesplane/pkg/api"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("agent is shutting down")

// Planner resolves a product type to its manufacturing plan.
type Planner interface {
	PlanFor(productType int) (routing.Plan, error)
}

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	Concurrency int
	// Epoch is the wall-clock instant of simulated time zero.
	Epoch   time.Time
	Logger  *slog.Logger
	Metrics *observability.Instruments
}

// Job is one accepted production request.
type Job struct {
	RequestID     string
	CorrelationID string
	ProductType   int
}

// Agent processes jobs in background goroutines, at most Concurrency at a time.
type Agent struct {
	planner   Planner
	scheduler *online.Scheduler
	runtime   runtime.Runtime
	ledger    store.RequestStore
	notifier  notifier.Notifier
	config    AgentConfig

	sem      chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int64

	mu     sync.RWMutex // held shared by Submit, exclusively by Shutdown
	closed bool
	done   chan struct{}
}

// New creates a new worker agent.
func New(p Planner, s *online.Scheduler, rt runtime.Runtime, ledger store.RequestStore, n notifier.Notifier, config AgentConfig) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Epoch.IsZero() {
		config.Epoch = time.Now().UTC()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Agent{
		planner:   p,
		scheduler: s,
		runtime:   rt,
		ledger:    ledger,
		notifier:  n,
		config:    config,
		sem:       make(chan struct{}, config.Concurrency),
		done:      make(chan struct{}),
	}
}

// Submit records the request and starts processing it in the background.
// It returns store.ErrDuplicate when the request id was already accepted.
// Processing is detached from ctx cancellation but keeps its values.
func (a *Agent) Submit(ctx context.Context, job Job) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrShuttingDown
	}

	err := a.ledger.CreateRequest(ctx, &store.Request{
		ID:            job.RequestID,
		CorrelationID: job.CorrelationID,
		ProductType:   job.ProductType,
		Status:        store.RequestStatusProcessing,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	a.wg.Add(1)
	a.inFlight.Add(1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer a.wg.Done()
		defer a.inFlight.Add(-1)

		// Beyond the bound, requests wait for a slot instead of being rejected.
		a.sem <- struct{}{}
		defer func() { <-a.sem }()

		a.process(bg, job)
	}()
	return nil
}

// InFlight returns the number of accepted requests that have not finished.
func (a *Agent) InFlight() int64 {
	return a.inFlight.Load()
}

// Shutdown stops accepting requests and waits for in-flight ones to finish,
// or for ctx to expire.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		go func() {
			a.wg.Wait()
			close(a.done)
		}()
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// process runs one request end to end.
func (a *Agent) process(ctx context.Context, job Job) {
	ctx = logger.WithRequestID(ctx, job.RequestID)
	ctx = logger.WithCorrelationID(ctx, job.CorrelationID)
	log := logger.FromContext(ctx, a.config.Logger)

	ctx, span := otel.Tracer("mesplane-worker").Start(ctx, "process_request",
		trace.WithAttributes(
			attribute.String("request.id", job.RequestID),
			attribute.String("correlation.id", job.CorrelationID),
			attribute.Int("product.type", job.ProductType),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	target := routing.ProductNode(job.ProductType)
	log.Info("processing request", "target", target)

	plan, err := a.planner.PlanFor(job.ProductType)
	if err != nil {
		msg := fmt.Sprintf("No manufacturing plan found for %s (request: %s)", target, job.RequestID)
		a.fail(ctx, log, span, job, err, msg)
		return
	}

	step := 0
	assignments, err := a.scheduler.Run(ctx, plan, func(ctx context.Context, as online.Assignment) error {
		step++
		a.config.Metrics.RecordReservation(ctx, as.Machine, as.ToolChanged)
		a.record(ctx, log, job.RequestID, step, as)

		log.Info("operation reserved",
			"step", step,
			"operation", as.Operation.String(),
			"machine", as.Machine,
			"start", as.Start,
			"end", as.End,
			"tool_changed", as.ToolChanged,
		)

		return a.runtime.Execute(ctx, runtime.Step{
			RequestID: job.RequestID,
			Machine:   as.Machine,
			Tool:      as.Operation.Tool,
			From:      as.Operation.From,
			To:        as.Operation.To,
			Start:     as.Start,
			End:       as.End,
			Duration:  as.Operation.Duration,
		})
	})
	if err != nil {
		a.fail(ctx, log, span, job, err, failureMessage(job, plan, assignments, err))
		return
	}

	lastEnd := 0
	if n := len(assignments); n > 0 {
		lastEnd = assignments[n-1].End
	}
	span.SetAttributes(attribute.Int("last_end", lastEnd))
	log.Info("request completed", "operations", len(assignments), "last_end", lastEnd)

	a.finish(ctx, log, job, api.StatusCompleted, "", a.config.Epoch.Add(time.Duration(lastEnd)*time.Second))
}

// failureMessage describes why the plan stopped, given the assignments
// already committed when it did.
func failureMessage(job Job, plan routing.Plan, done []online.Assignment, err error) string {
	switch {
	case errors.Is(err, machine.ErrNoCapableMachine) && len(done) < len(plan.Operations):
		op := plan.Operations[len(done)]
		return fmt.Sprintf("Could not find/reserve machine for op %s for %s (request: %s)", op.Tool, op.To, job.RequestID)
	case errors.Is(err, runtime.ErrStepFailed) && len(done) > 0:
		last := done[len(done)-1]
		return fmt.Sprintf("Simulated PLC operation failed for %s on %s (request: %s)", last.Operation.To, last.Machine, job.RequestID)
	default:
		return fmt.Sprintf("Processing for request %s failed: %v", job.RequestID, err)
	}
}

func (a *Agent) fail(ctx context.Context, log *slog.Logger, span trace.Span, job Job, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	log.Warn("request failed", "error", err)
	a.finish(ctx, log, job, api.StatusFailed, msg, time.Now().UTC())
}

// record writes a reservation to the ledger. Ledger failures are logged and
// never undo the reservation.
func (a *Agent) record(ctx context.Context, log *slog.Logger, requestID string, step int, as online.Assignment) {
	res := &store.Reservation{
		RequestID:   requestID,
		Step:        step,
		FromPiece:   as.Operation.From,
		ToPiece:     as.Operation.To,
		Tool:        as.Operation.Tool,
		Duration:    as.Operation.Duration,
		Machine:     as.Machine,
		Start:       as.Start,
		End:         as.End,
		ToolChanged: as.ToolChanged,
	}
	if pt := as.PassThrough; pt != nil {
		res.PassThroughMachine = pt.Machine
		res.PassThroughStart = pt.Start
		res.PassThroughEnd = pt.End
	}
	if err := a.ledger.AddReservation(ctx, res); err != nil {
		log.Error("failed to record reservation", "step", step, "error", err)
	}
}

func (a *Agent) finish(ctx context.Context, log *slog.Logger, job Job, status, errMsg string, ts time.Time) {
	ledgerStatus := store.RequestStatusCompleted
	var msgPtr *string
	if status == api.StatusFailed {
		ledgerStatus = store.RequestStatusFailed
		msgPtr = &errMsg
	}
	if err := a.ledger.FinishRequest(ctx, job.RequestID, ledgerStatus, msgPtr, time.Now().UTC()); err != nil {
		log.Error("failed to record request outcome", "error", err)
	}
	a.config.Metrics.RecordRequest(ctx, status)

	update := api.StepUpdate{
		RequestID:     job.RequestID,
		CorrelationID: job.CorrelationID,
		Status:        status,
		Timestamp:     ts.UTC(),
		ErrorMessage:  errMsg,
	}
	if err := a.notifier.Notify(ctx, update); err != nil {
		log.Error("callback delivery failed", "status", status, "error", err)
		return
	}
	log.Info("callback delivered", "status", status)
}
