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
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/parallelvm/shmrt/internal/shmem"
)

// WaitResult distinguishes the ways a blocking wait can return.
type WaitResult int

const (
	// WaitOK means the waiter was woken by a notify (or a wake raced with
	// the value changing). Callers must re-check their condition; wake-ups
	// can be spurious.
	WaitOK WaitResult = iota

	// WaitTimedOut means the timeout elapsed before any notify arrived.
	WaitTimedOut

	// WaitNotEqual means the value at the offset no longer matched the
	// expected value when the wait was attempted; the waiter never slept.
	WaitNotEqual
)

func (w WaitResult) String() string {
	switch w {
	case WaitOK:
		return "ok"
	case WaitTimedOut:
		return "timed-out"
	case WaitNotEqual:
		return "not-equal"
	default:
		return "unknown"
	}
}

// backend is the blocking wait/notify mechanism behind Wait32/Wait64/Notify.
type backend interface {
	wait32(offset uint32, p *int32, expected int32, timeout time.Duration) (WaitResult, error)
	wait64(offset uint32, p *int64, expected int64, timeout time.Duration) (WaitResult, error)
	notify(offset uint32, p unsafe.Pointer, count int) (int, error)
	name() string
}

// Atomics performs atomic operations at offsets within one region. All
// operations are sequentially consistent with respect to each other. Create
// exactly one Atomics per region so that every waiter and notifier shares
// the same backend.
type Atomics struct {
	region *shmem.Region
	wake   backend
}

// New creates an Atomics over the region, using the futex backend when the
// platform supports it and the portable parker otherwise.
func New(region *shmem.Region) *Atomics {
	if futexSupported {
		return &Atomics{region: region, wake: futexBackend{}}
	}
	return NewPortable(region)
}

// NewPortable creates an Atomics that always uses the in-process parker,
// regardless of platform. Used on platforms without futexes and by tests
// that exercise the portable path.
func NewPortable(region *shmem.Region) *Atomics {
	return &Atomics{region: region, wake: newParker()}
}

// Backend returns the name of the wait backend ("futex" or "parker").
func (a *Atomics) Backend() string {
	return a.wake.name()
}

// Region returns the region the operations act on.
func (a *Atomics) Region() *shmem.Region {
	return a.region
}

// ptr32 validates offset for a 4-byte atomic access and returns its address.
// Atomic accesses must be naturally aligned; a misaligned offset is reported
// as a bounds violation.
func (a *Atomics) ptr32(offset uint32) (*int32, error) {
	if err := a.region.CheckRange(offset, 4); err != nil {
		return nil, err
	}
	if offset&3 != 0 {
		return nil, &shmem.BoundsError{Offset: offset, Size: 4, Capacity: a.region.Capacity()}
	}
	return (*int32)(unsafe.Pointer(&a.region.Bytes()[offset])), nil
}

// ptr64 validates offset for an 8-byte atomic access and returns its address.
func (a *Atomics) ptr64(offset uint32) (*int64, error) {
	if err := a.region.CheckRange(offset, 8); err != nil {
		return nil, err
	}
	if offset&7 != 0 {
		return nil, &shmem.BoundsError{Offset: offset, Size: 8, Capacity: a.region.Capacity()}
	}
	return (*int64)(unsafe.Pointer(&a.region.Bytes()[offset])), nil
}

// Load32 atomically loads the 32-bit value at offset.
func (a *Atomics) Load32(offset uint32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	return atomic.LoadInt32(p), nil
}

// Store32 atomically stores v at offset.
func (a *Atomics) Store32(offset uint32, v int32) error {
	p, err := a.ptr32(offset)
	if err != nil {
		return err
	}
	atomic.StoreInt32(p, v)
	return nil
}

// Add32 atomically adds delta to the value at offset and returns the value
// held before the addition.
func (a *Atomics) Add32(offset uint32, delta int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	return atomic.AddInt32(p, delta) - delta, nil
}

// Sub32 atomically subtracts delta from the value at offset and returns the
// value held before the subtraction.
func (a *Atomics) Sub32(offset uint32, delta int32) (int32, error) {
	return a.Add32(offset, -delta)
}

// And32 atomically ANDs mask into the value at offset and returns the prior
// value.
func (a *Atomics) And32(offset uint32, mask int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(p)
		if atomic.CompareAndSwapInt32(p, old, old&mask) {
			return old, nil
		}
	}
}

// Or32 atomically ORs mask into the value at offset and returns the prior
// value.
func (a *Atomics) Or32(offset uint32, mask int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(p)
		if atomic.CompareAndSwapInt32(p, old, old|mask) {
			return old, nil
		}
	}
}

// Xor32 atomically XORs mask into the value at offset and returns the prior
// value.
func (a *Atomics) Xor32(offset uint32, mask int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(p)
		if atomic.CompareAndSwapInt32(p, old, old^mask) {
			return old, nil
		}
	}
}

// Exchange32 atomically stores v at offset and returns the prior value.
func (a *Atomics) Exchange32(offset uint32, v int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	return atomic.SwapInt32(p, v), nil
}

// CompareExchange32 atomically replaces the value at offset with desired if
// it currently equals expected. It returns the value held before the
// operation; the exchange happened iff the returned value equals expected.
func (a *Atomics) CompareExchange32(offset uint32, expected, desired int32) (int32, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(p)
		if old != expected {
			return old, nil
		}
		if atomic.CompareAndSwapInt32(p, expected, desired) {
			return expected, nil
		}
	}
}

// Load64 atomically loads the 64-bit value at offset.
func (a *Atomics) Load64(offset uint32) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	return atomic.LoadInt64(p), nil
}

// Store64 atomically stores v at offset.
func (a *Atomics) Store64(offset uint32, v int64) error {
	p, err := a.ptr64(offset)
	if err != nil {
		return err
	}
	atomic.StoreInt64(p, v)
	return nil
}

// Add64 atomically adds delta to the value at offset and returns the value
// held before the addition.
func (a *Atomics) Add64(offset uint32, delta int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	return atomic.AddInt64(p, delta) - delta, nil
}

// Sub64 atomically subtracts delta from the value at offset and returns the
// value held before the subtraction.
func (a *Atomics) Sub64(offset uint32, delta int64) (int64, error) {
	return a.Add64(offset, -delta)
}

// And64 atomically ANDs mask into the value at offset and returns the prior
// value.
func (a *Atomics) And64(offset uint32, mask int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(p)
		if atomic.CompareAndSwapInt64(p, old, old&mask) {
			return old, nil
		}
	}
}

// Or64 atomically ORs mask into the value at offset and returns the prior
// value.
func (a *Atomics) Or64(offset uint32, mask int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(p)
		if atomic.CompareAndSwapInt64(p, old, old|mask) {
			return old, nil
		}
	}
}

// Xor64 atomically XORs mask into the value at offset and returns the prior
// value.
func (a *Atomics) Xor64(offset uint32, mask int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(p)
		if atomic.CompareAndSwapInt64(p, old, old^mask) {
			return old, nil
		}
	}
}

// Exchange64 atomically stores v at offset and returns the prior value.
func (a *Atomics) Exchange64(offset uint32, v int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	return atomic.SwapInt64(p, v), nil
}

// CompareExchange64 atomically replaces the value at offset with desired if
// it currently equals expected, returning the prior value.
func (a *Atomics) CompareExchange64(offset uint32, expected, desired int64) (int64, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(p)
		if old != expected {
			return old, nil
		}
		if atomic.CompareAndSwapInt64(p, expected, desired) {
			return expected, nil
		}
	}
}

// Wait32 blocks the calling thread until the 32-bit value at offset is
// observed to differ from expected and a notify arrives at the offset, or
// until the timeout elapses. A timeout <= 0 waits forever. Wake-ups can be
// spurious; callers must loop on their condition.
func (a *Atomics) Wait32(offset uint32, expected int32, timeout time.Duration) (WaitResult, error) {
	p, err := a.ptr32(offset)
	if err != nil {
		return WaitNotEqual, err
	}
	return a.wake.wait32(offset, p, expected, timeout)
}

// Wait64 is Wait32 for 64-bit values.
func (a *Atomics) Wait64(offset uint32, expected int64, timeout time.Duration) (WaitResult, error) {
	p, err := a.ptr64(offset)
	if err != nil {
		return WaitNotEqual, err
	}
	return a.wake.wait64(offset, p, expected, timeout)
}

// Notify wakes up to count threads blocked in Wait32/Wait64 at offset and
// returns the number actually woken. Use NotifyAll to wake every waiter.
func (a *Atomics) Notify(offset uint32, count int) (int, error) {
	if err := a.region.CheckRange(offset, 4); err != nil {
		return 0, err
	}
	if offset&3 != 0 {
		return 0, &shmem.BoundsError{Offset: offset, Size: 4, Capacity: a.region.Capacity()}
	}
	p := unsafe.Pointer(&a.region.Bytes()[offset])
	return a.wake.notify(offset, p, count)
}

// NotifyAll wakes every thread blocked at offset.
func (a *Atomics) NotifyAll(offset uint32) (int, error) {
	return a.Notify(offset, allWaiters)
}

// allWaiters is the wake count used to release every waiter at an offset.
const allWaiters = int(^uint32(0) >> 1)
