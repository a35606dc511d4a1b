package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "blelloch-scan/pkg/scan"

// Engine computes exclusive prefix sums with the two-phase tree algorithm.
// An Engine is stateless between calls and safe for concurrent use; every
// call to Compute owns its buffer and its workers.
type Engine struct {
	logger   *slog.Logger
	observer Observer
	executor Executor
	tracer   trace.Tracer
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for computation lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver installs a progress observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithExecutor selects how workers are scheduled. The default is PoolExecutor.
func WithExecutor(x Executor) Option {
	return func(e *Engine) {
		if x != nil {
			e.executor = x
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMetrics records Prometheus metrics for every computation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New returns an engine with the given options applied.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
		executor: PoolExecutor{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns the exclusive prefix sum of input using a default engine.
func Compute(input []int64, maxWorkers int) ([]int64, error) {
	return New().Compute(context.Background(), input, maxWorkers)
}

// Compute returns the exclusive prefix sum of input as len(input)+1 values:
// out[0] is 0, out[i] is the sum of input[:i], out[n] is the grand total.
//
// len(input) must be a power of two and maxWorkers at least 1; violations are
// reported before any buffer is allocated or worker started. At most
// maxWorkers tasks run at once. input is not modified.
//
// ctx is checked between levels. A task failure or cancellation aborts the
// remaining levels and no partial result is returned.
func (e *Engine) Compute(ctx context.Context, input []int64, maxWorkers int) (out []int64, err error) {
	n := len(input)
	if err := validate(n, maxWorkers); err != nil {
		e.metrics.observeComputation(resultInvalid, n, 0)
		return nil, err
	}

	r := &run{
		engine:     e,
		id:         uuid.NewString(),
		n:          n,
		maxWorkers: maxWorkers,
		buf:        NewBuffer(input),
	}

	ctx, span := e.tracer.Start(ctx, "scan.Compute", trace.WithAttributes(
		attribute.String("scan.run_id", r.id),
		attribute.Int("scan.length", n),
		attribute.Int("scan.max_workers", maxWorkers),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		result := resultOK
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			result = resultCanceled
		default:
			result = resultFailed
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("scan aborted",
				slog.String("run_id", r.id),
				slog.Int("length", n),
				slog.String("error", err.Error()),
			)
		} else {
			e.logger.Debug("scan finished",
				slog.String("run_id", r.id),
				slog.Int("length", n),
				slog.Duration("elapsed", elapsed),
			)
		}
		e.metrics.observeComputation(result, n, elapsed)
	}()

	workers := PoolSize(n, maxWorkers)
	e.logger.Debug("scan started",
		slog.String("run_id", r.id),
		slog.Int("length", n),
		slog.Int("depth", Depth(n)),
		slog.Int("workers", workers),
	)

	r.session = e.executor.Start(workers)
	defer r.session.Close()

	return r.execute(ctx)
}

// run is the state of a single computation.
type run struct {
	engine     *Engine
	id         string
	n          int
	maxWorkers int
	buf        *Buffer
	session    Session
}

func (r *run) state(s State) {
	r.engine.observer.OnState(r.id, s)
}

func (r *run) execute(ctx context.Context) ([]int64, error) {
	depth := Depth(r.n)

	r.state(StateIdle)
	r.state(StateUpSweeping)
	for level := 0; level < depth; level++ {
		if err := r.level(ctx, PhaseUp, level); err != nil {
			return nil, err
		}
	}

	r.state(StateSnapshot)
	total := r.buf.takeTotal()

	r.state(StateDownSweeping)
	for level := depth; level >= 0; level-- {
		if err := r.level(ctx, PhaseDown, level); err != nil {
			return nil, err
		}
	}

	r.state(StateRestore)
	r.buf.setTotal(total)

	r.state(StateDone)
	return r.buf.slots, nil
}

// level runs every task of one level and waits for all of them.
func (r *run) level(ctx context.Context, phase Phase, index int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan: %s level %d: %w", phase, index, err)
	}

	lv := Partition(r.n, index, r.maxWorkers)
	tasks := lv.Tasks(phase)

	start := time.Now()
	err := r.session.Run(ctx, tasks, r.work)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	trace.SpanFromContext(ctx).AddEvent("level", trace.WithAttributes(
		attribute.String("scan.phase", phase.String()),
		attribute.Int("scan.level", index),
		attribute.Int("scan.workers", lv.Workers),
		attribute.Int("scan.field", lv.Field),
	))
	r.engine.metrics.observeLevel(phase, len(tasks), elapsed)
	r.engine.observer.OnLevel(LevelEvent{
		RunID:   r.id,
		Phase:   phase,
		Level:   lv,
		Elapsed: elapsed,
		Buffer:  r.buf,
	})
	return nil
}

// work is the TaskFunc handed to the executor; the buffer travels with it.
func (r *run) work(t Task) error {
	r.engine.observer.OnTask(r.id, t)
	t.Run(r.buf)
	return nil
}
