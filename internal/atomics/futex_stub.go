//go:build !linux || !(amd64 || arm64)

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

package atomics

import (
	"time"
	"unsafe"
)

// futexSupported reports whether the futex backend is available. On this
// platform New falls back to the portable parker.
const futexSupported = false

// futexBackend is never constructed on this platform; the methods exist to
// keep the type checked on every target.
type futexBackend struct{}

func (futexBackend) name() string { return "futex" }

func (futexBackend) wait32(uint32, *int32, int32, time.Duration) (WaitResult, error) {
	return WaitNotEqual, errFutexUnsupported
}

func (futexBackend) wait64(uint32, *int64, int64, time.Duration) (WaitResult, error) {
	return WaitNotEqual, errFutexUnsupported
}

func (futexBackend) notify(uint32, unsafe.Pointer, int) (int, error) {
	return 0, errFutexUnsupported
}
