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

// Package shmem provides the shared memory region underlying the thread
// runtime.
//
// A Region is a fixed-capacity byte buffer visible to every worker. All
// higher-level components (atomics, synchronization primitives, thread-local
// storage) address data inside it by plain integer offsets, never by raw
// pointers, and every access is bounds-checked against the region capacity.
//
// The package also provides Arena, a cache-line-aligned bump allocator that
// carves storage for those components out of a region, and an optional
// file-backed region for sharing memory beyond a single process.
package shmem
