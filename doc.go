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

// Package shmrt is a shared-memory thread runtime for hosts without native
// OS threading: a fixed-size shared memory region, sequentially consistent
// atomic operations at offsets within it, thread-local storage, futex-style
// synchronization primitives, and a fixed pool of reusable workers.
//
// The Runtime orchestrator owns the region and a cache-line-aligned bump
// allocator, carves thread-local storage and primitive state out of it, and
// pre-spawns the worker pool. Tasks submitted with Spawn coordinate through
// atomics and primitives addressed by plain integer offsets; the region
// handle is threaded explicitly through every API, never held as ambient
// global state.
//
// A minimal session:
//
//	rt, err := shmrt.New(shmrt.DefaultConfig())
//	if err != nil { ... }
//	defer rt.Close()
//
//	counter, _ := rt.AllocAtomic32()
//	h, _ := rt.Spawn(ctx, func(tc *shmrt.TaskContext) (int64, error) {
//		_, err := tc.Atomics.Add32(counter, 1)
//		return 0, err
//	})
//	_, _ = rt.Wait(ctx, h)
package shmrt
