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
	"errors"
	"fmt"
	"runtime"

	"github.com/parallelvm/shmrt/internal/atomics"
	"github.com/parallelvm/shmrt/internal/shmem"
	"github.com/parallelvm/shmrt/internal/threadlocal"
)

// ErrWorkerTerminated is returned when posting to a terminated worker.
var ErrWorkerTerminated = errors.New("pool: worker terminated")

// TaskContext is handed to every task function. It identifies the executing
// thread and exposes the shared memory facilities the task coordinates
// through.
type TaskContext struct {
	ThreadID int
	Region   *shmem.Region
	Atomics  *atomics.Atomics
	TLS      *threadlocal.Table
	Args     []int64
}

// TaskFunc is the entry point of a task. The returned value is surfaced
// through TaskResult.
type TaskFunc func(tc *TaskContext) (int64, error)

// InitMessage carries the one-time worker initialization: the shared memory
// handle and the worker's thread identity. It is posted exactly once per
// worker, at spawn time.
type InitMessage struct {
	Region   *shmem.Region
	Atomics  *atomics.Atomics
	TLS      *threadlocal.Table
	ThreadID int
}

// TaskMessage dispatches one task to a worker.
type TaskMessage struct {
	TaskID uint64
	Fn     TaskFunc
	Args   []int64
}

// Completion is emitted by a worker when a task finishes.
type Completion struct {
	TaskID uint64
	Value  int64
	Err    error
}

// Worker is an opaque execution unit. It was initialized at spawn time and
// runs posted tasks to completion, one at a time, emitting a Completion for
// each. Terminate stops the unit; its completion channel is closed once the
// in-flight task (if any) has drained.
type Worker interface {
	Post(TaskMessage) error
	Completions() <-chan Completion
	Terminate()
}

// Spawner creates workers. It models the host's worker-creation transport;
// spawn failures surface as ThreadCreationError at pool construction.
type Spawner interface {
	Spawn(InitMessage) (Worker, error)
}

// ThreadCreationError reports a worker spawn failure.
type ThreadCreationError struct {
	ThreadID int
	Cause    error
}

func (e *ThreadCreationError) Error() string {
	return fmt.Sprintf("pool: failed to spawn worker %d: %v", e.ThreadID, e.Cause)
}

func (e *ThreadCreationError) Unwrap() error { return e.Cause }

// GoroutineSpawner runs each worker as a dedicated goroutine, optionally
// pinned to an OS thread. It is the in-process stand-in for the host's
// worker transport.
type GoroutineSpawner struct {
	// LockOSThread pins each worker goroutine to its own OS thread,
	// matching the one-unit-per-core execution model of worker-based
	// hosts.
	LockOSThread bool
}

// Spawn starts a worker goroutine initialized with init.
func (s *GoroutineSpawner) Spawn(init InitMessage) (Worker, error) {
	w := &goroutineWorker{
		init:        init,
		inbox:       make(chan TaskMessage, 1),
		completions: make(chan Completion, 1),
		quit:        make(chan struct{}),
	}
	go w.run(s.LockOSThread)
	return w, nil
}

type goroutineWorker struct {
	init        InitMessage
	inbox       chan TaskMessage
	completions chan Completion
	quit        chan struct{}
}

func (w *goroutineWorker) Post(msg TaskMessage) error {
	select {
	case <-w.quit:
		return ErrWorkerTerminated
	case w.inbox <- msg:
		return nil
	}
}

func (w *goroutineWorker) Completions() <-chan Completion {
	return w.completions
}

func (w *goroutineWorker) Terminate() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}

func (w *goroutineWorker) run(lockThread bool) {
	if lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer close(w.completions)

	for {
		select {
		case <-w.quit:
			return
		case msg := <-w.inbox:
			tc := &TaskContext{
				ThreadID: w.init.ThreadID,
				Region:   w.init.Region,
				Atomics:  w.init.Atomics,
				TLS:      w.init.TLS,
				Args:     msg.Args,
			}
			value, err := msg.Fn(tc)
			// At most one task is in flight per worker and the completion
			// channel holds one entry, so this send never blocks. Sending
			// unconditionally keeps the result observable even when the
			// worker is terminated mid-drain.
			w.completions <- Completion{TaskID: msg.TaskID, Value: value, Err: err}
		}
	}
}
