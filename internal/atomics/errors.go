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

import "errors"

// errFutexTimeout is returned by futexWaitTimeout when the wait times out.
var errFutexTimeout = errors.New("futex timeout")

// errFutexUnsupported is returned by the futex backend on platforms that
// lack it; New never selects the futex backend there.
var errFutexUnsupported = errors.New("futex operations not supported on this platform")
