package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/model"
	"github.com/seantiz/warp/internal/store"
)

// DefaultTimeoutS is the default timeout in seconds when none is specified.
const DefaultTimeoutS = 30

// ErrNoJob is returned by Submit when the request carries no job.
var ErrNoJob = errors.New("run request has no job")

// Job is a work queue bound to its arguments, ready to run on a backend.
// *workgroup.Launch implements it.
type Job interface {
	QueueID() string
	Len() int
	DeviceCapable() bool
	StorageBytes() int64
	Run(ctx context.Context, b backend.Backend) (*backend.Completion, error)
}

// Releaser is implemented by jobs that own their queue. The engine releases
// them once the run is over.
type Releaser interface {
	Release() error
}

// Summarizer is implemented by jobs that can describe their result after a
// successful run. The summary is emitted as the last run event.
type Summarizer interface {
	Summary() string
}

// Request describes one run to submit.
type Request struct {
	Name     string
	Policy   string
	TimeoutS *int
	Job      Job
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer sets the tracer used for run spans. The default is the tracer
// of the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithDefaultTimeout sets the timeout applied to requests without one.
func WithDefaultTimeout(seconds int) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.defaultTimeoutS = seconds
		}
	}
}

// Engine orchestrates asynchronous runs.
type Engine struct {
	store           store.Store
	registry        *backend.Registry
	logger          *slog.Logger
	tracer          trace.Tracer
	defaultTimeoutS int
	wg              sync.WaitGroup
	broker          *EventBroker
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, reg *backend.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		registry:        reg,
		logger:          logger,
		tracer:          defaultTracer(),
		defaultTimeoutS: DefaultTimeoutS,
		broker:          NewEventBroker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Broker returns the engine's event broker for SSE subscription.
func (e *Engine) Broker() *EventBroker {
	return e.broker
}

// Submit records a pending run and starts it in a goroutine. The returned
// run reflects the stored record at submission time.
func (e *Engine) Submit(ctx context.Context, req Request) (*model.Run, error) {
	if req.Job == nil {
		return nil, ErrNoJob
	}

	policy := req.Policy
	if policy == "" {
		policy = model.PolicyAuto
	}

	r := &model.Run{
		ID:           model.NewID(),
		QueueID:      req.Job.QueueID(),
		Name:         req.Name,
		Status:       model.StatusPending,
		Policy:       policy,
		Items:        req.Job.Len(),
		StorageBytes: req.Job.StorageBytes(),
		TimeoutS:     req.TimeoutS,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.store.CreateRun(ctx, r); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	e.logger.Info("run submitted",
		"run_id", r.ID,
		"name", r.Name,
		"policy", r.Policy,
		"items", r.Items,
		"storage", humanize.Bytes(uint64(r.StorageBytes)),
	)

	rCopy := *r
	e.wg.Go(func() {
		e.execute(&rCopy, req.Job)
	})

	return r, nil
}

// Wait blocks until all in-flight runs complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// runState carries per-run bookkeeping through execute.
type runState struct {
	run   *model.Run
	start *time.Time
	seq   int
}

// execute runs the lifecycle pending→running→completed/failed.
func (e *Engine) execute(r *model.Run, job Job) {
	defer e.broker.Close(r.ID)
	defer e.release(r.ID, job)

	st := &runState{run: r}

	if err := e.store.UpdateRunStatus(context.Background(), r.ID, model.StatusRunning); err != nil {
		e.logger.Error("failed to transition to running", "run_id", r.ID, "error", err)
		e.finishFailed(st, fmt.Sprintf("failed to start: %v", err))
		return
	}

	runsInFlight.Inc()
	defer runsInFlight.Dec()

	start := time.Now()
	st.start = &start

	timeoutS := e.defaultTimeoutS
	if r.TimeoutS != nil && *r.TimeoutS > 0 {
		timeoutS = *r.TimeoutS
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, spanName,
		trace.WithAttributes(runAttributes(r)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	e.emit(st, fmt.Sprintf("run started: %d items, %s", r.Items, humanize.Bytes(uint64(r.StorageBytes))))

	b, err := e.registry.Resolve(r.Policy, job.DeviceCapable())
	if err != nil {
		e.fail(st, span, fmt.Errorf("resolve backend: %w", err))
		return
	}
	caps := b.Capabilities()
	r.Backend = caps.Name
	span.SetAttributes(
		attribute.String("warp.backend", caps.Name),
		attribute.String("warp.backend.target", string(caps.Target)),
		attribute.String("warp.backend.completion", string(caps.Completion)),
	)
	e.emit(st, fmt.Sprintf("backend %s (%s, %s completion)", caps.Name, caps.Target, caps.Completion))

	c, err := job.Run(ctx, b)
	if err != nil {
		e.fail(st, span, err)
		return
	}
	itemsDispatched.WithLabelValues(caps.Name).Add(float64(r.Items))
	e.emit(st, fmt.Sprintf("launched %d items", r.Items))

	if err := c.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("run timed out after %ds: %w", timeoutS, err)
		}
		e.fail(st, span, err)
		return
	}

	durationMS := int(time.Since(start).Milliseconds())
	now := time.Now().UTC()
	r.Status = model.StatusCompleted
	r.DurationMS = &durationMS
	r.StartedAt = st.start
	r.FinishedAt = &now

	if s, ok := job.(Summarizer); ok {
		e.emit(st, s.Summary())
	}
	e.emit(st, fmt.Sprintf("completed in %s", time.Duration(durationMS)*time.Millisecond))
	span.SetStatus(codes.Ok, "")

	runsTotal.WithLabelValues(r.Backend, model.StatusCompleted).Inc()
	runDuration.WithLabelValues(r.Backend).Observe(time.Since(start).Seconds())

	if err := e.store.UpdateRun(context.Background(), r); err != nil {
		e.logger.Error("failed to update completed run", "run_id", r.ID, "error", err)
		return
	}
	e.logger.Info("run completed", "run_id", r.ID, "backend", r.Backend, "duration_ms", durationMS)
}

// fail records err on the span and marks the run failed.
func (e *Engine) fail(st *runState, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.finishFailed(st, err.Error())
}

// finishFailed marks a run as failed with the given message. The start time
// is nil if execution never started.
func (e *Engine) finishFailed(st *runState, errMsg string) {
	r := st.run
	now := time.Now().UTC()
	var durationMS int
	if st.start != nil {
		durationMS = int(time.Since(*st.start).Milliseconds())
	}

	r.Status = model.StatusFailed
	r.Error = errMsg
	r.DurationMS = &durationMS
	r.StartedAt = st.start
	r.FinishedAt = &now

	e.emit(st, "failed: "+errMsg)
	runsTotal.WithLabelValues(r.Backend, model.StatusFailed).Inc()

	if err := e.store.UpdateRun(context.Background(), r); err != nil {
		e.logger.Error("failed to update failed run", "run_id", r.ID, "error", err)
		return
	}
	e.logger.Warn("run failed", "run_id", r.ID, "backend", r.Backend, "error", errMsg)
}

// emit persists an event for historical viewing, then publishes it for
// real-time subscribers.
func (e *Engine) emit(st *runState, msg string) {
	seq := st.seq
	st.seq++
	if err := e.store.InsertEvent(context.Background(), st.run.ID, seq, msg); err != nil {
		e.logger.Error("failed to persist run event", "run_id", st.run.ID, "seq", seq, "error", err)
	}
	e.broker.Publish(st.run.ID, msg)
}

// release frees the job's queue if the job owns it.
func (e *Engine) release(runID string, job Job) {
	rel, ok := job.(Releaser)
	if !ok {
		return
	}
	if err := rel.Release(); err != nil {
		e.logger.Error("failed to release queue", "run_id", runID, "error", err)
		return
	}
	e.logger.Debug("queue released", "run_id", runID)
}
