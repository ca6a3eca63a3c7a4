//go:build linux && (amd64 || arm64)

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
	"fmt"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// futexSupported reports whether the futex backend is available.
const futexSupported = true

// Linux futex constants
const (
	futexWaitPrivate = 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 129 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

// futexBackend parks waiting threads in the kernel on the address of the
// watched word. The kernel compares the word against the expected value
// under its own lock, which closes the lost-wake window between our snapshot
// and the sleep.
type futexBackend struct{}

func (futexBackend) name() string { return "futex" }

func (futexBackend) wait32(_ uint32, p *int32, expected int32, timeout time.Duration) (WaitResult, error) {
	if atomic.LoadInt32(p) != expected {
		return WaitNotEqual, nil
	}
	addr := (*uint32)(unsafe.Pointer(p))
	err := futexWaitTimeout(addr, uint32(expected), timeout.Nanoseconds())
	if err == errFutexTimeout {
		return WaitTimedOut, nil
	}
	if err != nil {
		return WaitOK, err
	}
	return WaitOK, nil
}

// wait64 parks on the low word of the 64-bit value. The full value is
// compared atomically first; the kernel-side compare then covers the low
// word, which is at the base address on the little-endian targets this file
// builds for. A change confined to the high half therefore needs an explicit
// notify to wake the waiter, which every caller of Wait64 provides.
func (futexBackend) wait64(_ uint32, p *int64, expected int64, timeout time.Duration) (WaitResult, error) {
	if atomic.LoadInt64(p) != expected {
		return WaitNotEqual, nil
	}
	addr := (*uint32)(unsafe.Pointer(p))
	err := futexWaitTimeout(addr, uint32(uint64(expected)), timeout.Nanoseconds())
	if err == errFutexTimeout {
		return WaitTimedOut, nil
	}
	if err != nil {
		return WaitOK, err
	}
	return WaitOK, nil
}

func (futexBackend) notify(_ uint32, p unsafe.Pointer, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}
	return futexWake((*uint32)(p), count)
}

// futexWait waits for the value at addr to change from val. It returns when
// either the value at addr no longer equals val, another thread calls
// futexWake on the same address, or the system call is interrupted.
//
// Always re-check the condition after this returns due to possible spurious
// wakeups.
func futexWait(addr *uint32, val uint32) error {
	// Re-check the value atomically before entering the syscall. This
	// prevents the lost-wake race where another thread changes the value
	// and wakes us between our snapshot and futex entry.
	if atomic.LoadUint32(addr) != val {
		return nil // Value already changed, no need to wait
	}

	// syscall.Syscall6, not RawSyscall6: the wait can block indefinitely and
	// the waker runs in this same process, so the scheduler must be able to
	// hand the P to another goroutine while this thread sleeps.
	_, _, errno := syscall.Syscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), // uaddr - address to wait on
		futexWaitPrivate,              // futex_op - wait operation with private flag
		uintptr(val),                  // val - expected value
		0,                             // timeout - infinite (NULL)
		0,                             // uaddr2 - unused
		0,                             // val3 - unused
	)

	if errno != 0 {
		// EAGAIN means the value didn't match - expected, not an error
		if errno == syscall.EAGAIN {
			return nil
		}
		// EINTR means interrupted by signal - also not a real error here
		if errno == syscall.EINTR {
			return nil
		}
		return fmt.Errorf("futex wait failed: %w", errno)
	}
	return nil
}

// futexWaitTimeout waits on addr until the value changes from val or the
// timeout elapses. timeoutNs <= 0 means no timeout. Returns errFutexTimeout
// if the wait times out.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if timeoutNs <= 0 {
		return futexWait(addr, val)
	}

	if atomic.LoadUint32(addr) != val {
		return nil
	}

	var ts syscall.Timespec
	ts.Sec = timeoutNs / 1e9
	ts.Nsec = timeoutNs % 1e9

	_, _, errno := syscall.Syscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), // uaddr - address to wait on
		futexWaitPrivate,              // futex_op - wait operation with private flag
		uintptr(val),                  // val - expected value
		uintptr(unsafe.Pointer(&ts)),  // timeout - timespec pointer
		0,                             // uaddr2 - unused
		0,                             // val3 - unused
	)

	if errno != 0 {
		if errno == syscall.EAGAIN {
			return nil
		}
		if errno == syscall.EINTR {
			return nil
		}
		if errno == syscall.ETIMEDOUT {
			return errFutexTimeout
		}
		return fmt.Errorf("futex wait failed: %w", errno)
	}
	return nil
}

// futexWake wakes up to n threads waiting on addr and returns the number of
// threads actually woken.
func futexWake(addr *uint32, n int) (int, error) {
	r1, _, errno := syscall.RawSyscall6(
		syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)), // uaddr - address to wake on
		futexWakePrivate,              // futex_op - wake operation with private flag
		uintptr(n),                    // val - number of threads to wake
		0,                             // timeout - unused for wake
		0,                             // uaddr2 - unused
		0,                             // val3 - unused
	)

	if errno != 0 {
		return 0, fmt.Errorf("futex wake failed: %w", errno)
	}
	return int(r1), nil
}
