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

// Package shmsync provides synchronization primitives (Mutex, Cond, Barrier,
// RWLock) whose state lives at cache-line-aligned offsets inside a shared
// memory region and whose blocking is built exclusively on the atomics
// package's wait/notify.
//
// All primitives use the CAS-then-block pattern: one optimistic attempt,
// then a kernel-or-parker wait instead of spinning. None of them offers a
// fairness guarantee; under sustained contention a thread can repeatedly
// lose the CAS race. Release operations establish happens-before edges for
// the corresponding successful acquisitions.
//
// Each primitive expects its backing offsets to be zero-initialized, which
// arena allocations guarantee.
package shmsync
