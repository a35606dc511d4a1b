package scan

import (
	"context"
	"log/slog"
	"time"
)

// State is the engine's position in a computation.
type State int

const (
	StateIdle State = iota
	StateUpSweeping
	StateSnapshot
	StateDownSweeping
	StateRestore
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUpSweeping:
		return "upsweeping"
	case StateSnapshot:
		return "snapshot"
	case StateDownSweeping:
		return "downsweeping"
	case StateRestore:
		return "restore"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// LevelEvent is reported after the barrier of a level.
// Buffer may be read during the callback only; no task is running at that point.
type LevelEvent struct {
	RunID   string
	Phase   Phase
	Level   Level
	Elapsed time.Duration
	Buffer  *Buffer
}

// Observer receives progress of a computation. OnTask is called from worker
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	OnState(runID string, s State)
	OnLevel(ev LevelEvent)
	OnTask(runID string, t Task)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	State func(runID string, s State)
	Level func(ev LevelEvent)
	Task  func(runID string, t Task)
}

func (f ObserverFuncs) OnState(runID string, s State) {
	if f.State != nil {
		f.State(runID, s)
	}
}

func (f ObserverFuncs) OnLevel(ev LevelEvent) {
	if f.Level != nil {
		f.Level(ev)
	}
}

func (f ObserverFuncs) OnTask(runID string, t Task) {
	if f.Task != nil {
		f.Task(runID, t)
	}
}

// maxLoggedSlots bounds the buffer dump attached to level records.
const maxLoggedSlots = 64

// LogObserver writes every event to Logger at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnState(runID string, s State) {
	o.Logger.Debug("scan state", slog.String("run_id", runID), slog.String("state", s.String()))
}

func (o LogObserver) OnLevel(ev LevelEvent) {
	attrs := []slog.Attr{
		slog.String("run_id", ev.RunID),
		slog.String("phase", ev.Phase.String()),
		slog.Int("level", ev.Level.Index),
		slog.Int("workers", ev.Level.Workers),
		slog.Int("field", ev.Level.Field),
		slog.Duration("elapsed", ev.Elapsed),
	}
	if ev.Buffer != nil && ev.Buffer.Len() < maxLoggedSlots {
		attrs = append(attrs, slog.Any("buffer", ev.Buffer.Snapshot()))
	}
	o.Logger.LogAttrs(context.Background(), slog.LevelDebug, "scan level", attrs...)
}

func (o LogObserver) OnTask(runID string, t Task) {
	o.Logger.Debug("scan worker",
		slog.String("run_id", runID),
		slog.String("phase", t.Phase.String()),
		slog.Int("level", t.Level),
		slog.Int("worker", t.Worker),
		slog.Int("lo", t.Lo),
		slog.Int("hi", t.Hi),
	)
}

// nopObserver is used when no observer is configured.
type nopObserver struct{}

func (nopObserver) OnState(string, State) {}
func (nopObserver) OnLevel(LevelEvent)    {}
func (nopObserver) OnTask(string, Task)   {}
