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

// Package atomics provides sequentially consistent atomic operations on
// 32- and 64-bit integers at offsets within a shared memory region, plus
// blocking wait/notify in the style of a futex.
//
// Two wait backends exist: a Linux futex backend that parks the calling
// thread in the kernel, and a portable in-process parker that keys waiters
// by offset. The backend is chosen once at construction; all waiters and
// notifiers on a region must share one Atomics instance so they agree on
// the wake mechanism.
//
// Every read-modify-write operation returns the value held before the
// operation, matching the contract the synchronization primitives build on.
package atomics
