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

package shmrt

import (
	"github.com/parallelvm/shmrt/internal/atomics"
	"github.com/parallelvm/shmrt/internal/pool"
	"github.com/parallelvm/shmrt/internal/shmem"
	"github.com/parallelvm/shmrt/internal/shmsync"
	"github.com/parallelvm/shmrt/internal/threadlocal"
)

// The runtime's building blocks live in internal packages. The aliases below
// are the supported way for consumers to name them: everything reachable from
// the Runtime API — task callbacks, handles, primitives, and the error
// taxonomy — can be spelled with this package alone.

// Shared memory region and bump allocator.
type (
	Region = shmem.Region
	Arena  = shmem.Arena

	// BoundsError reports an access past the region capacity or at a
	// misaligned offset.
	BoundsError = shmem.BoundsError
	// AllocationError reports region creation, growth, or arena carving
	// beyond the available capacity.
	AllocationError = shmem.AllocationError
)

// Region geometry.
const (
	CacheLineSize = shmem.CacheLineSize
	PageSize      = shmem.PageSize
	MaxRegionSize = shmem.MaxRegionSize
)

// ErrRegionClosed is returned for any access to a region after Close.
var ErrRegionClosed = shmem.ErrRegionClosed

// Atomic operations over region offsets.
type (
	Atomics    = atomics.Atomics
	WaitResult = atomics.WaitResult
	Batch      = atomics.Batch
	Op         = atomics.Op
	OpCode     = atomics.OpCode
)

// Wait outcomes.
const (
	WaitOK       = atomics.WaitOK
	WaitTimedOut = atomics.WaitTimedOut
	WaitNotEqual = atomics.WaitNotEqual
)

// Batch op codes.
const (
	OpLoad32            = atomics.OpLoad32
	OpStore32           = atomics.OpStore32
	OpAdd32             = atomics.OpAdd32
	OpSub32             = atomics.OpSub32
	OpAnd32             = atomics.OpAnd32
	OpOr32              = atomics.OpOr32
	OpXor32             = atomics.OpXor32
	OpExchange32        = atomics.OpExchange32
	OpCompareExchange32 = atomics.OpCompareExchange32
	OpLoad64            = atomics.OpLoad64
	OpStore64           = atomics.OpStore64
	OpAdd64             = atomics.OpAdd64
	OpSub64             = atomics.OpSub64
	OpAnd64             = atomics.OpAnd64
	OpOr64              = atomics.OpOr64
	OpXor64             = atomics.OpXor64
	OpExchange64        = atomics.OpExchange64
	OpCompareExchange64 = atomics.OpCompareExchange64
)

// Synchronization primitives.
type (
	Mutex       = shmsync.Mutex
	Cond        = shmsync.Cond
	Barrier     = shmsync.Barrier
	BarrierRole = shmsync.BarrierRole
	RWLock      = shmsync.RWLock
	RGuard      = shmsync.RGuard
	WGuard      = shmsync.WGuard
)

// Barrier roles.
const (
	Follower = shmsync.Follower
	Leader   = shmsync.Leader
)

// ErrNotLocked is returned by Mutex.Unlock when the mutex is not held.
var ErrNotLocked = shmsync.ErrNotLocked

// Thread-local storage.
type (
	TLSTable = threadlocal.Table

	// InvalidThreadIDError reports TLS access with an out-of-range thread
	// id.
	InvalidThreadIDError = threadlocal.InvalidThreadIDError
)

// Worker pool.
type (
	Pool        = pool.Pool
	TaskContext = pool.TaskContext
	TaskFunc    = pool.TaskFunc
	TaskHandle  = pool.TaskHandle
	TaskResult  = pool.TaskResult
	InitMessage = pool.InitMessage
	TaskMessage = pool.TaskMessage
	Completion  = pool.Completion

	// Worker and Spawner model the host's worker transport; supply a
	// Spawner through Config to replace the in-process goroutine workers.
	Worker  = pool.Worker
	Spawner = pool.Spawner

	GoroutineSpawner = pool.GoroutineSpawner

	// ThreadCreationError reports a worker spawn failure at pool
	// construction.
	ThreadCreationError = pool.ThreadCreationError

	WorkerStatus = pool.Status
)

// Worker slot states.
const (
	Idle       = pool.Idle
	Busy       = pool.Busy
	Terminated = pool.Terminated
)

var (
	// ErrPoolClosed is returned by Spawn and Wait after the runtime closes.
	ErrPoolClosed = pool.ErrPoolClosed
	// ErrUnknownTask is returned by Wait for a handle the pool is not
	// tracking.
	ErrUnknownTask = pool.ErrUnknownTask
	// ErrWorkerTerminated is returned when dispatching to a terminated
	// worker.
	ErrWorkerTerminated = pool.ErrWorkerTerminated
)
