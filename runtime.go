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
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/parallelvm/shmrt/internal/atomics"
	"github.com/parallelvm/shmrt/internal/pool"
	"github.com/parallelvm/shmrt/internal/shmem"
	"github.com/parallelvm/shmrt/internal/shmsync"
	"github.com/parallelvm/shmrt/internal/threadlocal"
)

// FeatureError reports that the host environment lacks a primitive the
// runtime requires. It is detected once, at construction, so the runtime
// fails fast instead of unpredictably mid-execution.
type FeatureError struct {
	Feature string
	Reason  string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("shmrt: host feature %q unavailable: %s", e.Feature, e.Reason)
}

// Runtime composes the shared memory region, bump allocator, thread-local
// storage, worker pool, and primitive factories into one init/teardown unit.
type Runtime struct {
	cfg    Config
	region *shmem.Region
	arena  *shmem.Arena
	at     *atomics.Atomics
	tls    *threadlocal.Table
	pool   *pool.Pool
	log    *logrus.Entry

	closeOnce sync.Once
	closeErr  error
}

// New builds a runtime from cfg. Zero-valued config fields take the
// documented defaults. The startup sequence is: feature probe, region
// allocation, allocator construction, TLS carve, pool spawn; any failure
// aborts construction with a descriptive error.
func New(cfg Config) (*Runtime, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "shmrt: invalid config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("component", "runtime")

	region, err := shmem.New(cfg.MemorySize)
	if err != nil {
		return nil, errors.Wrap(err, "shmrt: region allocation")
	}

	arena, err := shmem.NewArena(region, 0, region.Capacity())
	if err != nil {
		region.Close()
		return nil, errors.Wrap(err, "shmrt: allocator construction")
	}

	at := atomics.New(region)
	if err := probe(at, arena); err != nil {
		region.Close()
		return nil, err
	}

	tlsBase, err := arena.Alloc(threadlocal.BlockBytes(cfg.TLSSlotSize, cfg.MaxThreads))
	if err != nil {
		region.Close()
		return nil, errors.Wrap(err, "shmrt: TLS carve")
	}
	tls, err := threadlocal.New(region, tlsBase, cfg.TLSSlotSize, cfg.MaxThreads)
	if err != nil {
		region.Close()
		return nil, errors.Wrap(err, "shmrt: TLS construction")
	}

	spawner := cfg.Spawner
	if spawner == nil {
		spawner = &pool.GoroutineSpawner{LockOSThread: cfg.LockOSThreads}
	}
	poolOpts := []pool.Option{pool.WithLogger(logger.WithField("component", "pool"))}
	if cfg.Metrics != nil {
		poolOpts = append(poolOpts, pool.WithMetrics(cfg.Metrics))
	}
	p, err := pool.New(cfg.PoolSize, spawner,
		pool.InitMessage{Region: region, Atomics: at, TLS: tls}, poolOpts...)
	if err != nil {
		region.Close()
		return nil, errors.Wrap(err, "shmrt: pool construction")
	}

	log.WithFields(logrus.Fields{
		"memory":  cfg.MemorySize,
		"workers": cfg.PoolSize,
		"threads": cfg.MaxThreads,
		"backend": at.Backend(),
	}).Info("runtime initialized")

	return &Runtime{
		cfg:    cfg,
		region: region,
		arena:  arena,
		at:     at,
		tls:    tls,
		pool:   p,
		log:    log,
	}, nil
}

// probe verifies once, at startup, that the host provides what the runtime
// needs: an aligned shared buffer and working 64-bit atomics. It burns one
// cache line of arena space for the scratch word.
func probe(at *atomics.Atomics, arena *shmem.Arena) error {
	off, err := arena.Alloc(8)
	if err != nil {
		return &FeatureError{Feature: "shared-memory", Reason: err.Error()}
	}

	const pattern = int64(0x0102030405060708)
	old, err := at.CompareExchange64(off, 0, pattern)
	if err != nil || old != 0 {
		return &FeatureError{Feature: "atomics-64", Reason: "compare-exchange roundtrip failed"}
	}
	got, err := at.Load64(off)
	if err != nil || got != pattern {
		return &FeatureError{Feature: "atomics-64", Reason: "load after compare-exchange mismatched"}
	}
	if err := at.Store64(off, 0); err != nil {
		return &FeatureError{Feature: "atomics-64", Reason: err.Error()}
	}
	return nil
}

// Spawn submits a task to the worker pool, blocking while all workers are
// busy. The handle correlates the task with the worker executing it.
func (r *Runtime) Spawn(ctx context.Context, fn TaskFunc, args ...int64) (TaskHandle, error) {
	return r.pool.Execute(ctx, fn, args...)
}

// Wait blocks until the task identified by handle completes.
func (r *Runtime) Wait(ctx context.Context, handle TaskHandle) (TaskResult, error) {
	return r.pool.Wait(ctx, handle)
}

// NewMutex allocates cache-aligned state and returns a mutex over it.
func (r *Runtime) NewMutex() (*Mutex, error) {
	off, err := r.arena.Alloc(4)
	if err != nil {
		return nil, errors.Wrap(err, "shmrt: mutex allocation")
	}
	return shmsync.NewMutex(r.at, off), nil
}

// NewCond allocates cache-aligned state and returns a condition variable
// over it.
func (r *Runtime) NewCond() (*Cond, error) {
	off, err := r.arena.Alloc(4)
	if err != nil {
		return nil, errors.Wrap(err, "shmrt: condvar allocation")
	}
	return shmsync.NewCond(r.at, off), nil
}

// NewBarrier allocates cache-aligned state and returns a reusable barrier
// for parties threads.
func (r *Runtime) NewBarrier(parties int) (*Barrier, error) {
	off, err := r.arena.Alloc(8)
	if err != nil {
		return nil, errors.Wrap(err, "shmrt: barrier allocation")
	}
	return shmsync.NewBarrier(r.at, off, parties)
}

// NewRWLock allocates cache-aligned state and returns a reader-writer lock
// over it.
func (r *Runtime) NewRWLock() (*RWLock, error) {
	off, err := r.arena.Alloc(4)
	if err != nil {
		return nil, errors.Wrap(err, "shmrt: rwlock allocation")
	}
	return shmsync.NewRWLock(r.at, off), nil
}

// AllocAtomic32 carves a cache-aligned, zeroed 32-bit atomic slot and
// returns its offset.
func (r *Runtime) AllocAtomic32() (uint32, error) {
	return r.arena.Alloc(4)
}

// AllocAtomic64 carves a cache-aligned, zeroed 64-bit atomic slot and
// returns its offset.
func (r *Runtime) AllocAtomic64() (uint32, error) {
	return r.arena.Alloc(8)
}

// Atomics returns the runtime's atomic operations handle.
func (r *Runtime) Atomics() *Atomics { return r.at }

// TLS returns the runtime's thread-local storage table.
func (r *Runtime) TLS() *TLSTable { return r.tls }

// Region returns the shared memory region.
func (r *Runtime) Region() *Region { return r.region }

// Pool returns the worker pool.
func (r *Runtime) Pool() *Pool { return r.pool }

// Stats is a snapshot of the runtime's composition, for diagnostics.
type Stats struct {
	Backend        string
	MemorySize     uint32
	ArenaUsed      uint32
	ArenaRemaining uint32
	TLSKeys        int
	MaxThreads     int
	PoolSize       int
	BusyWorkers    int
}

// Stats returns a point-in-time snapshot of the runtime.
func (r *Runtime) Stats() Stats {
	return Stats{
		Backend:        r.at.Backend(),
		MemorySize:     r.region.Capacity(),
		ArenaUsed:      r.arena.Used(),
		ArenaRemaining: r.arena.Remaining(),
		TLSKeys:        r.tls.Keys(),
		MaxThreads:     r.tls.MaxThreads(),
		PoolSize:       r.pool.Size(),
		BusyWorkers:    r.pool.BusyWorkers(),
	}
}

// Close terminates the workers and releases the shared memory region. It is
// idempotent.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.pool.Close()
		r.closeErr = r.region.Close()
		r.log.Info("runtime closed")
	})
	return r.closeErr
}
