/*
 *
 * Copyright 2026 The shmrt Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of one worker slot.
type Status int32

const (
	// Idle workers are available for dispatch.
	Idle Status = iota
	// Busy workers are executing a task.
	Busy
	// Terminated workers have been shut down and never return to the pool.
	Terminated
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrPoolClosed is returned by Execute and Wait after Close.
var ErrPoolClosed = errors.New("pool: closed")

// ErrUnknownTask is returned by Wait for a handle the pool is not tracking
// (never issued, or already waited on).
var ErrUnknownTask = errors.New("pool: unknown task handle")

// TaskHandle correlates a submitted task with the worker executing it.
type TaskHandle struct {
	TaskID   uint64
	WorkerID int
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	TaskID   uint64
	WorkerID int
	Value    int64
	Err      error
}

// record tracks one worker slot. It is owned by the pool; status moves
// Idle -> Busy in Execute and Busy -> Idle in the completion collector.
type record struct {
	id        int
	worker    Worker
	status    atomic.Int32
	taskID    atomic.Uint64 // task currently executing, valid while Busy
	taskCount atomic.Uint64 // tasks ever dispatched to this worker
}

type pendingTask struct {
	workerID int
	started  time.Time
	done     chan TaskResult
}

// Pool is a fixed set of pre-created workers reused across tasks. Workers
// receive their shared-memory handle once, at spawn; task dispatch never
// repeats initialization.
type Pool struct {
	size    int
	records []*record
	idle    chan int // ids of idle workers; capacity == size

	mu      sync.Mutex
	pending map[uint64]*pendingTask
	nextID  atomic.Uint64
	closed  atomic.Bool

	collectors sync.WaitGroup
	log        *logrus.Entry
	metrics    *metrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger routes pool lifecycle logging to log.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pool) { p.log = log }
}

// WithMetrics registers Prometheus collectors for the pool on reg.
func WithMetrics(reg prometheusRegisterer) Option {
	return func(p *Pool) { p.metrics = newMetrics(reg) }
}

// New pre-spawns size workers via the spawner, initializing worker i with
// init except for ThreadID, which is set to i. A spawn failure terminates
// the already-spawned workers and returns ThreadCreationError.
func New(size int, spawner Spawner, init InitMessage, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, errors.Errorf("pool: size must be positive, got %d", size)
	}
	p := &Pool{
		size:    size,
		records: make([]*record, size),
		idle:    make(chan int, size),
		pending: make(map[uint64]*pendingTask),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("component", "pool")

	for i := 0; i < size; i++ {
		workerInit := init
		workerInit.ThreadID = i
		w, err := spawner.Spawn(workerInit)
		if err != nil {
			for j := 0; j < i; j++ {
				p.records[j].worker.Terminate()
			}
			return nil, &ThreadCreationError{ThreadID: i, Cause: err}
		}
		rec := &record{id: i, worker: w}
		rec.status.Store(int32(Idle))
		p.records[i] = rec
		p.idle <- i

		p.collectors.Add(1)
		go p.collect(rec)
	}

	p.log.WithField("workers", size).Debug("pool started")
	return p, nil
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return p.size }

// BusyWorkers returns the number of workers currently executing a task.
func (p *Pool) BusyWorkers() int {
	n := 0
	for _, rec := range p.records {
		if Status(rec.status.Load()) == Busy {
			n++
		}
	}
	return n
}

// TaskCount returns how many tasks have been dispatched to worker id.
func (p *Pool) TaskCount(id int) uint64 {
	if id < 0 || id >= p.size {
		return 0
	}
	return p.records[id].taskCount.Load()
}

// Execute submits a task to an available worker, blocking while every worker
// is busy. It returns a handle immediately after dispatch; the task runs
// asynchronously. The number of simultaneously busy workers never exceeds
// the pool size because dispatch consumes ids from the bounded idle set.
func (p *Pool) Execute(ctx context.Context, fn TaskFunc, args ...int64) (TaskHandle, error) {
	if p.closed.Load() {
		return TaskHandle{}, ErrPoolClosed
	}
	if fn == nil {
		return TaskHandle{}, errors.New("pool: nil task function")
	}

	var id int
	select {
	case id = <-p.idle:
	case <-ctx.Done():
		if p.metrics != nil {
			p.metrics.rejected.Inc()
		}
		return TaskHandle{}, errors.Wrap(ctx.Err(), "pool: no worker became available")
	}

	// Re-check after acquiring a worker: Close may have raced with us.
	if p.closed.Load() {
		return TaskHandle{}, ErrPoolClosed
	}

	rec := p.records[id]
	taskID := p.nextID.Add(1)

	p.mu.Lock()
	p.pending[taskID] = &pendingTask{workerID: id, started: time.Now(), done: make(chan TaskResult, 1)}
	p.mu.Unlock()

	rec.status.Store(int32(Busy))
	rec.taskID.Store(taskID)
	rec.taskCount.Add(1)

	if err := rec.worker.Post(TaskMessage{TaskID: taskID, Fn: fn, Args: args}); err != nil {
		p.mu.Lock()
		delete(p.pending, taskID)
		p.mu.Unlock()
		rec.status.Store(int32(Terminated))
		return TaskHandle{}, errors.Wrapf(err, "pool: dispatch to worker %d failed", id)
	}

	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.busy.Inc()
	}
	p.log.WithFields(logrus.Fields{"task": taskID, "worker": id}).Debug("task dispatched")

	return TaskHandle{TaskID: taskID, WorkerID: id}, nil
}

// Wait blocks until the task identified by handle completes and returns its
// result. Each handle can be waited on once. Abandoning a handle is allowed;
// the worker still completes and returns to the idle pool.
func (p *Pool) Wait(ctx context.Context, handle TaskHandle) (TaskResult, error) {
	p.mu.Lock()
	pt, ok := p.pending[handle.TaskID]
	p.mu.Unlock()
	if !ok {
		return TaskResult{}, ErrUnknownTask
	}

	select {
	case res := <-pt.done:
		p.mu.Lock()
		delete(p.pending, handle.TaskID)
		p.mu.Unlock()
		return res, nil
	case <-ctx.Done():
		return TaskResult{}, errors.Wrapf(ctx.Err(), "pool: waiting for task %d", handle.TaskID)
	}
}

// collect routes one worker's completions: it publishes the result, flips
// the worker back to Idle, and returns its id to the idle set. This runs
// even when nobody waits on the handle, preserving the pool-size bound.
func (p *Pool) collect(rec *record) {
	defer p.collectors.Done()
	for c := range rec.worker.Completions() {
		p.mu.Lock()
		pt := p.pending[c.TaskID]
		p.mu.Unlock()

		if p.metrics != nil {
			p.metrics.completed.Inc()
			p.metrics.busy.Dec()
			if pt != nil {
				p.metrics.taskSeconds.Observe(time.Since(pt.started).Seconds())
			}
		}

		rec.status.Store(int32(Idle))

		if pt != nil {
			pt.done <- TaskResult{TaskID: c.TaskID, WorkerID: rec.id, Value: c.Value, Err: c.Err}
		}

		if !p.closed.Load() {
			p.idle <- rec.id
		}
		p.log.WithFields(logrus.Fields{"task": c.TaskID, "worker": rec.id}).Debug("task completed")
	}
	rec.status.Store(int32(Terminated))
}

// Close terminates all workers and rejects further submissions. In-flight
// tasks run to completion; their results remain collectable via Wait until
// the worker drains.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	for _, rec := range p.records {
		rec.worker.Terminate()
	}
	p.collectors.Wait()
	p.log.Debug("pool closed")
}
