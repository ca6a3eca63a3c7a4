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

package shmsync

import (
	"time"

	"github.com/parallelvm/shmrt/internal/atomics"
)

// Cond is a condition variable backed by a 32-bit sequence counter in shared
// memory. A waiter snapshots the sequence, releases the mutex, and parks
// until the sequence moves; notifiers bump the sequence before waking, so a
// signal sent between the release and the park is never lost.
//
// All waiters must use the same mutex; this is a caller obligation and is
// not enforced.
type Cond struct {
	at  *atomics.Atomics
	off uint32 // sequence word
}

// NewCond creates a condition variable over the 4-byte word at offset. The
// offset must be cache-line aligned and zero-initialized.
func NewCond(at *atomics.Atomics, offset uint32) *Cond {
	return &Cond{at: at, off: offset}
}

// Offset returns the offset of the sequence word.
func (c *Cond) Offset() uint32 { return c.off }

// Wait atomically releases mu and parks the calling thread until a Signal or
// Broadcast arrives, then re-acquires mu before returning. As with any
// condition variable, wake-ups can be spurious: callers must re-check their
// predicate in a loop.
func (c *Cond) Wait(mu *Mutex) error {
	_, err := c.wait(mu, 0)
	return err
}

// WaitTimeout is Wait with a bound on the parked phase. It returns false if
// the timeout elapsed without a notification; the mutex is re-acquired in
// every case.
func (c *Cond) WaitTimeout(mu *Mutex, timeout time.Duration) (bool, error) {
	return c.wait(mu, timeout)
}

func (c *Cond) wait(mu *Mutex, timeout time.Duration) (bool, error) {
	seq, err := c.at.Load32(c.off)
	if err != nil {
		return false, err
	}
	if err := mu.Unlock(); err != nil {
		return false, err
	}

	res, waitErr := c.at.Wait32(c.off, seq, timeout)

	// Re-acquire unconditionally so the caller's critical section is intact
	// even when the wait failed.
	if err := mu.Lock(); err != nil {
		return false, err
	}
	if waitErr != nil {
		return false, waitErr
	}
	return res != atomics.WaitTimedOut, nil
}

// Signal wakes one waiter.
func (c *Cond) Signal() error {
	return c.notify(1)
}

// Broadcast wakes all waiters.
func (c *Cond) Broadcast() error {
	return c.notifyAll()
}

func (c *Cond) notify(n int) error {
	if _, err := c.at.Add32(c.off, 1); err != nil {
		return err
	}
	_, err := c.at.Notify(c.off, n)
	return err
}

func (c *Cond) notifyAll() error {
	if _, err := c.at.Add32(c.off, 1); err != nil {
		return err
	}
	_, err := c.at.NotifyAll(c.off)
	return err
}
