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

// Package pool provides a fixed-size pool of pre-created workers that are
// initialized once with a shared memory handle and reused across tasks.
//
// Workers are opaque execution units behind the Spawner and Worker
// interfaces: the host environment supplies units that accept an init
// message, accept task messages, and report completions. The in-process
// GoroutineSpawner is the default, standing in for worker threads of a
// sandboxed virtual machine host.
//
// The pool never runs more than its size in concurrent tasks; Execute blocks
// while every worker is busy. A worker finishing a task returns to the idle
// set even if nobody waits for the task's handle.
package pool
