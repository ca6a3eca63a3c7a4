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
	"sync/atomic"
	"time"

	"github.com/parallelvm/shmrt/internal/atomics"
)

// RWLock state: -1 write-locked, 0 unlocked, n > 0 that many readers.
const rwWriteLocked int32 = -1

// RWLock is a reader-writer lock whose single 32-bit state word lives in
// shared memory. Any number of readers or exactly one writer may hold it.
// Acquisition is unfair: a writer can starve under a sustained stream of
// readers, and vice versa.
type RWLock struct {
	at  *atomics.Atomics
	off uint32
}

// NewRWLock creates a reader-writer lock over the 4-byte word at offset. The
// offset must be cache-line aligned and zero-initialized.
func NewRWLock(at *atomics.Atomics, offset uint32) *RWLock {
	return &RWLock{at: at, off: offset}
}

// Offset returns the offset of the state word.
func (l *RWLock) Offset() uint32 { return l.off }

// State returns the current raw state word (for diagnostics).
func (l *RWLock) State() (int32, error) {
	return l.at.Load32(l.off)
}

// RGuard represents one held read lock. Release is idempotent; releasing on
// every exit path (typically via defer) is the scoped-acquisition contract.
type RGuard struct {
	lock     *RWLock
	released atomic.Bool
}

// Release drops the read lock. The last reader out wakes one waiter, which
// is the pending writer if one is parked.
func (g *RGuard) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}
	prev, err := g.lock.at.Sub32(g.lock.off, 1)
	if err != nil {
		return err
	}
	if prev == 1 {
		_, err = g.lock.at.Notify(g.lock.off, 1)
	}
	return err
}

// WGuard represents the held write lock.
type WGuard struct {
	lock     *RWLock
	released atomic.Bool
}

// Release drops the write lock and wakes all waiters, readers and writers
// alike, to re-race for the lock.
func (g *WGuard) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := g.lock.at.Store32(g.lock.off, 0); err != nil {
		return err
	}
	_, err := g.lock.at.NotifyAll(g.lock.off)
	return err
}

// RLock acquires a read lock, blocking while a writer holds the lock.
func (l *RWLock) RLock() (*RGuard, error) {
	g, _, err := l.rlock(0)
	return g, err
}

// RLockTimeout is RLock with a bound; ok is false on timeout.
func (l *RWLock) RLockTimeout(timeout time.Duration) (g *RGuard, ok bool, err error) {
	return l.rlock(timeout)
}

func (l *RWLock) rlock(timeout time.Duration) (*RGuard, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		state, err := l.at.Load32(l.off)
		if err != nil {
			return nil, false, err
		}
		if state >= 0 {
			old, err := l.at.CompareExchange32(l.off, state, state+1)
			if err != nil {
				return nil, false, err
			}
			if old == state {
				return &RGuard{lock: l}, true, nil
			}
			// Lost the CAS race to another reader or writer; retry from a
			// fresh read without blocking.
			continue
		}

		remaining := time.Duration(0)
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil, false, nil
			}
		}
		res, err := l.at.Wait32(l.off, state, remaining)
		if err != nil {
			return nil, false, err
		}
		if res == atomics.WaitTimedOut {
			return nil, false, nil
		}
	}
}

// Lock acquires the write lock, blocking while any reader or writer holds
// the lock.
func (l *RWLock) Lock() (*WGuard, error) {
	g, _, err := l.lock(0)
	return g, err
}

// LockTimeout is Lock with a bound; ok is false on timeout.
func (l *RWLock) LockTimeout(timeout time.Duration) (g *WGuard, ok bool, err error) {
	return l.lock(timeout)
}

func (l *RWLock) lock(timeout time.Duration) (*WGuard, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		old, err := l.at.CompareExchange32(l.off, 0, rwWriteLocked)
		if err != nil {
			return nil, false, err
		}
		if old == 0 {
			return &WGuard{lock: l}, true, nil
		}

		remaining := time.Duration(0)
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil, false, nil
			}
		}
		res, err := l.at.Wait32(l.off, old, remaining)
		if err != nil {
			return nil, false, err
		}
		if res == atomics.WaitTimedOut {
			return nil, false, nil
		}
	}
}
