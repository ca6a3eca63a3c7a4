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
	"errors"
	"time"

	"github.com/parallelvm/shmrt/internal/atomics"
)

// Mutex state values
const (
	mutexUnlocked int32 = 0
	mutexLocked   int32 = 1
)

// ErrNotLocked is returned by Unlock on a mutex that is not locked.
var ErrNotLocked = errors.New("shmsync: unlock of unlocked mutex")

// Mutex is a mutual exclusion lock whose single 32-bit state word lives in
// shared memory. The zero state of the word is unlocked.
type Mutex struct {
	at  *atomics.Atomics
	off uint32
}

// NewMutex creates a mutex over the 4-byte word at offset. The offset must
// be cache-line aligned and zero-initialized.
func NewMutex(at *atomics.Atomics, offset uint32) *Mutex {
	return &Mutex{at: at, off: offset}
}

// Offset returns the offset of the state word.
func (m *Mutex) Offset() uint32 { return m.off }

// Lock acquires the mutex, blocking until it is available. The acquisition
// path is CAS-then-block: one compare-exchange attempt, then a wait on the
// state word, looping on wake-up.
func (m *Mutex) Lock() error {
	_, err := m.lock(0)
	return err
}

// LockTimeout is Lock with a bound. It returns false if the timeout elapsed
// before the mutex could be acquired.
func (m *Mutex) LockTimeout(timeout time.Duration) (bool, error) {
	return m.lock(timeout)
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() (bool, error) {
	old, err := m.at.CompareExchange32(m.off, mutexUnlocked, mutexLocked)
	if err != nil {
		return false, err
	}
	return old == mutexUnlocked, nil
}

func (m *Mutex) lock(timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		old, err := m.at.CompareExchange32(m.off, mutexUnlocked, mutexLocked)
		if err != nil {
			return false, err
		}
		if old == mutexUnlocked {
			return true, nil
		}

		remaining := time.Duration(0)
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
		}
		res, err := m.at.Wait32(m.off, mutexLocked, remaining)
		if err != nil {
			return false, err
		}
		if res == atomics.WaitTimedOut {
			return false, nil
		}
		// WaitOK or WaitNotEqual: retry the CAS. A woken thread can still
		// lose the race to a fresh locker; that unfairness is accepted.
	}
}

// Unlock releases the mutex and wakes one waiter. Unlocking a mutex that is
// not locked returns ErrNotLocked.
func (m *Mutex) Unlock() error {
	old, err := m.at.Exchange32(m.off, mutexUnlocked)
	if err != nil {
		return err
	}
	if old == mutexUnlocked {
		return ErrNotLocked
	}
	_, err = m.at.Notify(m.off, 1)
	return err
}
