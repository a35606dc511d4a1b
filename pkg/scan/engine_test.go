package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"blelloch-scan/pkg/seq"
)

var executors = map[string]Executor{
	"pool":  PoolExecutor{},
	"spawn": SpawnExecutor{},
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name    string
		input   []int64
		workers int
		want    []int64
	}{
		{"four_ones", []int64{1, 1, 1, 1}, 4, []int64{0, 1, 2, 3, 4}},
		{"sixteen_ones", seq.Constant(16, 1), 4, upTo(16)},
		{"single", []int64{5}, 1, []int64{0, 5}},
		{"one_to_eight", []int64{1, 2, 3, 4, 5, 6, 7, 8}, 1, []int64{0, 1, 3, 6, 10, 15, 21, 28, 36}},
	}

	for exName, ex := range executors {
		for _, tt := range tests {
			t.Run(exName+"/"+tt.name, func(t *testing.T) {
				got, err := New(WithExecutor(ex)).Compute(context.Background(), tt.input, tt.workers)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, Sequential(tt.input), got)
			})
		}
	}
}

// upTo returns 0, 1, ..., n.
func upTo(n int) []int64 {
	out := make([]int64, n+1)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func TestComputePackageLevel(t *testing.T) {
	got, err := Compute([]int64{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 3, 6, 10, 15, 21, 28, 36}, got)
}

func TestComputeMatchesSequential(t *testing.T) {
	seed := []byte("prefix-sum-oracle")
	for exName, ex := range executors {
		eng := New(WithExecutor(ex))
		for exp := 0; exp <= 11; exp++ {
			n := 1 << exp
			input := seq.Random(seed, n, 1_000_000)
			want := Sequential(input)
			for _, k := range []int{1, 2, 3, 4, 7, 8, 16, 64} {
				t.Run(fmt.Sprintf("%s/n%d/k%d", exName, n, k), func(t *testing.T) {
					got, err := eng.Compute(context.Background(), input, k)
					require.NoError(t, err)
					require.Len(t, got, n+1)
					assert.Equal(t, want, got)
				})
			}
		}
	}
}

func TestComputeIndependentOfWorkerBudget(t *testing.T) {
	input := seq.Random([]byte("budget"), 512, 1<<20)
	base, err := Compute(input, 1)
	require.NoError(t, err)
	for k := 2; k <= 40; k++ {
		got, err := Compute(input, k)
		require.NoError(t, err)
		assert.Equal(t, base, got, "k=%d", k)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	input := seq.Ramp(32)
	orig := append([]int64(nil), input...)
	_, err := Compute(input, 4)
	require.NoError(t, err)
	assert.Equal(t, orig, input)
}

func TestComputeRejectsPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		input   []int64
		workers int
		wantErr error
	}{
		{"nil", nil, 4, ErrInvalidLength},
		{"empty", []int64{}, 4, ErrInvalidLength},
		{"zero_workers", []int64{1, 2}, 0, ErrInvalidWorkerBudget},
		{"negative_workers", []int64{1, 2}, -1, ErrInvalidWorkerBudget},
		{"three", []int64{1, 2, 3}, 4, ErrNotPowerOfTwo},
		{"twelve", seq.Constant(12, 1), 4, ErrNotPowerOfTwo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events int
			var mu sync.Mutex
			count := func() { mu.Lock(); events++; mu.Unlock() }
			eng := New(WithObserver(ObserverFuncs{
				State: func(string, State) { count() },
				Level: func(LevelEvent) { count() },
				Task:  func(string, Task) { count() },
			}))

			got, err := eng.Compute(context.Background(), tt.input, tt.workers)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
			assert.Zero(t, events, "no work may start for rejected input")
		})
	}
}

// recorder collects observer events from concurrent workers.
type recorder struct {
	mu     sync.Mutex
	states []State
	levels []LevelEvent
	tasks  []Task
	totals []int64 // slot n after each level
}

func (r *recorder) observer() Observer {
	return ObserverFuncs{
		State: func(_ string, s State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s)
		},
		Level: func(ev LevelEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.levels = append(r.levels, ev)
			r.totals = append(r.totals, ev.Buffer.At(ev.Buffer.Len()))
		},
		Task: func(_ string, t Task) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tasks = append(r.tasks, t)
		},
	}
}

func TestComputeStateAndLevelOrder(t *testing.T) {
	rec := &recorder{}
	got, err := New(WithObserver(rec.observer())).Compute(context.Background(), seq.Constant(16, 1), 4)
	require.NoError(t, err)
	require.Len(t, got, 17)

	assert.Equal(t, []State{
		StateIdle, StateUpSweeping, StateSnapshot, StateDownSweeping, StateRestore, StateDone,
	}, rec.states)

	type step struct {
		phase Phase
		level int
	}
	var steps []step
	for _, ev := range rec.levels {
		steps = append(steps, step{ev.Phase, ev.Level.Index})
	}
	assert.Equal(t, []step{
		{PhaseUp, 0}, {PhaseUp, 1}, {PhaseUp, 2}, {PhaseUp, 3},
		{PhaseDown, 4}, {PhaseDown, 3}, {PhaseDown, 2}, {PhaseDown, 1}, {PhaseDown, 0},
	}, steps)

	// 4 + 4 + 2 + 1 up, 0 + 1 + 2 + 4 + 4 down.
	assert.Len(t, rec.tasks, 22)

	// The total slot stays empty until the very end.
	for i, v := range rec.totals {
		assert.Zero(t, v, "total slot written early at level event %d", i)
	}
}

func TestComputeWorkerBudgetRespected(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	obs := ObserverFuncs{Task: func(string, Task) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		time.Sleep(50 * time.Microsecond)
		mu.Lock()
		active--
		mu.Unlock()
	}}
	for exName, ex := range executors {
		t.Run(exName, func(t *testing.T) {
			peak = 0
			_, err := New(WithExecutor(ex), WithObserver(obs)).Compute(context.Background(), seq.Constant(256, 3), 4)
			require.NoError(t, err)
			assert.LessOrEqual(t, peak, 4)
		})
	}
}

func TestComputeWorkerFailureAborts(t *testing.T) {
	for exName, ex := range executors {
		t.Run(exName, func(t *testing.T) {
			rec := &recorder{}
			inner := rec.observer().(ObserverFuncs)
			obs := ObserverFuncs{
				State: inner.State,
				Level: inner.Level,
				Task: func(id string, task Task) {
					if task.Phase == PhaseUp && task.Level == 1 && task.Worker == 0 {
						panic("worker crashed")
					}
					inner.Task(id, task)
				},
			}

			got, err := New(WithExecutor(ex), WithObserver(obs)).Compute(context.Background(), seq.Constant(16, 1), 4)
			require.ErrorIs(t, err, ErrWorkerFailed)
			assert.Nil(t, got)

			var te *TaskError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, PhaseUp, te.Phase)
			assert.Equal(t, 1, te.Level)
			assert.Equal(t, 0, te.Worker)
			assert.Equal(t, "worker crashed", te.Cause)

			// Only level 0 completed; nothing after the failed level ran.
			require.Len(t, rec.levels, 1)
			assert.Equal(t, 0, rec.levels[0].Level.Index)
			for _, task := range rec.tasks {
				assert.LessOrEqual(t, task.Level, 1)
				assert.Equal(t, PhaseUp, task.Phase)
			}
			assert.NotContains(t, rec.states, StateSnapshot)
		})
	}
}

func TestTaskErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &TaskError{Phase: PhaseDown, Level: 2, Worker: 1, Cause: cause}
	assert.ErrorIs(t, err, ErrWorkerFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "scan: downsweep level 2 worker 1 failed: boom", err.Error())
}

func TestComputeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	inner := rec.observer().(ObserverFuncs)
	obs := ObserverFuncs{
		State: inner.State,
		Task:  inner.Task,
		Level: func(ev LevelEvent) {
			inner.Level(ev)
			if ev.Phase == PhaseUp && ev.Level.Index == 1 {
				cancel()
			}
		},
	}

	got, err := New(WithObserver(obs)).Compute(ctx, seq.Constant(64, 1), 4)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Len(t, rec.levels, 2)
}

func TestComputeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	eng := New(WithMetrics(m))

	_, err := eng.Compute(context.Background(), seq.Constant(16, 1), 4)
	require.NoError(t, err)
	_, err = eng.Compute(context.Background(), seq.Constant(3, 1), 4)
	require.ErrorIs(t, err, ErrNotPowerOfTwo)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.computations.WithLabelValues(resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.computations.WithLabelValues(resultInvalid)))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.tasks.WithLabelValues(PhaseUp.String())))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.tasks.WithLabelValues(PhaseDown.String())))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestComputeSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	eng := New(WithTracer(tp.Tracer("test")))

	_, err := eng.Compute(context.Background(), seq.Constant(8, 2), 2)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "scan.Compute", spans[0].Name())
	assert.Equal(t, otelcodes.Ok, spans[0].Status().Code)
	// 3 up-sweep levels and 4 down-sweep levels.
	assert.Len(t, spans[0].Events(), 7)
}

func TestExecutorByName(t *testing.T) {
	x, ok := ExecutorByName("spawn")
	require.True(t, ok)
	assert.IsType(t, SpawnExecutor{}, x)

	x, ok = ExecutorByName("")
	require.True(t, ok)
	assert.IsType(t, PoolExecutor{}, x)

	_, ok = ExecutorByName("threads")
	assert.False(t, ok)
}

func BenchmarkCompute(b *testing.B) {
	for _, n := range []int{1 << 10, 1 << 16, 1 << 20} {
		input := seq.Constant(n, 1)
		for _, k := range []int{1, 4, 8} {
			b.Run(fmt.Sprintf("n%d/k%d", n, k), func(b *testing.B) {
				eng := New()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := eng.Compute(context.Background(), input, k); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkSequential(b *testing.B) {
	for _, n := range []int{1 << 10, 1 << 16, 1 << 20} {
		input := seq.Constant(n, 1)
		b.Run(fmt.Sprintf("n%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				Sequential(input)
			}
		})
	}
}
