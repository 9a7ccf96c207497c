package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultWorkerPoolSize and DefaultGracePeriod are the default pool shape: a 4-worker bounded
// pool and a 300s grace period before a terminal task is garbage-collected.
const (
	DefaultWorkerPoolSize = 4
	DefaultGracePeriod    = 300 * time.Second
)

// ExecuteFunc runs one plan execution to completion (or failure/cancellation), returning the
// Result the owning Task will expose once terminal.
type ExecuteFunc func(ctx context.Context) (Result, error)

type job struct {
	ctx     context.Context
	task    *Task
	execute ExecuteFunc
}

// Manager owns every in-flight Execution Task: creation, a bounded worker pool that actually
// runs them, status lookup, cooperative cancellation, and grace-period cleanup.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	pool  *idPool

	jobs    chan job
	workers int
	grace   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// ManagerConfig configures worker concurrency and cleanup cadence.
type ManagerConfig struct {
	Workers      int
	GracePeriod  time.Duration
	PoolSize     int
	LowWatermark int
}

// NewManager starts the worker pool and the grace-period sweeper.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkerPoolSize
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}

	m := &Manager{
		tasks:   make(map[string]*Task),
		pool:    newIDPool(cfg.PoolSize, cfg.LowWatermark),
		jobs:    make(chan job, cfg.Workers*4),
		workers: cfg.Workers,
		grace:   cfg.GracePeriod,
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.wg.Add(1)
	go m.sweep()

	return m
}

// Submit creates a new Task in the pending state and enqueues execute to run on the worker
// pool. It returns immediately; the caller polls Status for completion.
func (m *Manager) Submit(ctx context.Context, execute ExecuteFunc) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{ID: m.pool.Take(), State: StatePending, CreatedAt: time.Now(), cancel: cancel}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	m.jobs <- job{ctx: taskCtx, task: t, execute: execute}
	return t
}

// Status returns a value snapshot of the task with the given ID.
func (m *Manager) Status(id string) (Task, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return Task{}, false
	}
	return t.Snapshot(), true
}

// Cancel requests cancellation of a task, returning "requested" or "unknown_task". Cancellation
// is cooperative: the running execution observes ctx.Done() at the next action boundary and the
// task transitions to cancelled from there, not synchronously inside this call.
func (m *Manager) Cancel(id string) string {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return "unknown_task"
	}
	if t.cancel != nil {
		t.cancel()
	}
	return "requested"
}

// Stop halts the worker pool and sweeper. In-flight jobs are allowed to observe cancellation
// naturally rather than being killed.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		close(m.jobs)
	})
	m.wg.Wait()
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		j.task.setState(StateRunning)
		result, err := j.execute(j.ctx)
		switch {
		case err == nil:
			j.task.complete(result)
		case errors.Is(err, context.Canceled):
			j.task.markCancelled()
		default:
			j.task.fail(fmt.Errorf("execution failed: %w", err))
		}
	}
}
