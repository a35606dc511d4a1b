package scan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskFunc executes one task against the computation's buffer.
type TaskFunc func(Task) error

// Executor provides the workers of one computation.
type Executor interface {
	// Start prepares up to workers concurrent workers.
	Start(workers int) Session
}

// Session runs levels for a single computation.
type Session interface {
	// Run executes every task concurrently and returns once all of them have
	// finished, with the first failure.
	Run(ctx context.Context, tasks []Task, fn TaskFunc) error
	// Close releases the workers. The session must not be used afterwards.
	Close()
}

// safeRun converts a panic inside fn into a *TaskError.
func safeRun(fn TaskFunc, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Phase: t.Phase, Level: t.Level, Worker: t.Worker, Cause: r}
		}
	}()
	return fn(t)
}

// ============================================================================
// Pool: fixed workers for the whole computation, one barrier per level
// ============================================================================

// PoolExecutor starts a fixed set of goroutines once per computation and feeds
// them every level's tasks through a channel.
type PoolExecutor struct{}

type job struct {
	task    Task
	fn      TaskFunc
	barrier *Barrier
}

type poolSession struct {
	jobs chan job
	wg   sync.WaitGroup
	once sync.Once
}

// Start launches the worker goroutines, at least one.
func (PoolExecutor) Start(workers int) Session {
	workers = max(1, workers)
	s := &poolSession{jobs: make(chan job)}
	s.wg.Add(workers)
	for range workers {
		go s.worker()
	}
	return s
}

func (s *poolSession) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		j.barrier.Done(safeRun(j.fn, j.task))
	}
}

func (s *poolSession) Run(_ context.Context, tasks []Task, fn TaskFunc) error {
	if len(tasks) == 0 {
		return nil
	}
	b := NewBarrier(len(tasks))
	for _, t := range tasks {
		s.jobs <- job{task: t, fn: fn, barrier: b}
	}
	return b.Wait()
}

func (s *poolSession) Close() {
	s.once.Do(func() {
		close(s.jobs)
		s.wg.Wait()
	})
}

// ============================================================================
// Spawn: fresh goroutines for every level
// ============================================================================

// SpawnExecutor starts one goroutine per task per level and joins them with
// an errgroup.
type SpawnExecutor struct{}

type spawnSession struct {
	limit int
}

// Start records the concurrency limit; no goroutine is started until Run.
func (SpawnExecutor) Start(workers int) Session {
	return spawnSession{limit: workers}
}

func (s spawnSession) Run(_ context.Context, tasks []Task, fn TaskFunc) error {
	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for _, t := range tasks {
		g.Go(func() error {
			return safeRun(fn, t)
		})
	}
	return g.Wait()
}

func (spawnSession) Close() {}

// ExecutorByName returns the executor registered under name: "pool" or "spawn".
func ExecutorByName(name string) (Executor, bool) {
	switch name {
	case "", "pool":
		return PoolExecutor{}, true
	case "spawn":
		return SpawnExecutor{}, true
	default:
		return nil, false
	}
}
