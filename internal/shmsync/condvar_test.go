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

package shmsync_test

import (
	"sync"
	"testing"
	"time"

	"github.com/parallelvm/shmrt/internal/shmsync"
)

func TestCond_SignalWakesOneWaiter(t *testing.T) {
	at := newAtomics(t)
	mu := shmsync.NewMutex(at, 0)
	cond := shmsync.NewCond(at, 64)

	// Predicate lives at a third offset; condvar waits must be wrapped in a
	// predicate loop because wake-ups can be spurious.
	const readyOff = 128

	woke := make(chan error, 1)
	go func() {
		if err := mu.Lock(); err != nil {
			woke <- err
			return
		}
		for {
			v, err := at.Load32(readyOff)
			if err != nil {
				woke <- err
				return
			}
			if v != 0 {
				break
			}
			if err := cond.Wait(mu); err != nil {
				woke <- err
				return
			}
		}
		woke <- mu.Unlock()
	}()

	time.Sleep(20 * time.Millisecond)
	if err := mu.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := at.Store32(readyOff, 1); err != nil {
		t.Fatalf("Store32 failed: %v", err)
	}
	if err := cond.Signal(); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	select {
	case err := <-woke:
		if err != nil {
			t.Fatalf("waiter failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never woke after Signal")
	}
}

func TestCond_BroadcastWakesAll(t *testing.T) {
	const waiters = 6

	at := newAtomics(t)
	mu := shmsync.NewMutex(at, 0)
	cond := shmsync.NewCond(at, 64)
	const readyOff = 128

	var wg sync.WaitGroup
	started := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mu.Lock(); err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			started <- struct{}{}
			for {
				v, err := at.Load32(readyOff)
				if err != nil {
					t.Errorf("Load32 failed: %v", err)
					return
				}
				if v != 0 {
					break
				}
				if err := cond.Wait(mu); err != nil {
					t.Errorf("Wait failed: %v", err)
					return
				}
			}
			if err := mu.Unlock(); err != nil {
				t.Errorf("Unlock failed: %v", err)
			}
		}()
	}

	for i := 0; i < waiters; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)

	if err := mu.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := at.Store32(readyOff, 1); err != nil {
		t.Fatalf("Store32 failed: %v", err)
	}
	if err := cond.Broadcast(); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("not all waiters woke after Broadcast")
	}
}

func TestCond_WaitTimeout(t *testing.T) {
	at := newAtomics(t)
	mu := shmsync.NewMutex(at, 0)
	cond := shmsync.NewCond(at, 64)

	if err := mu.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	start := time.Now()
	ok, err := cond.WaitTimeout(mu, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitTimeout failed: %v", err)
	}
	if ok {
		t.Fatal("WaitTimeout reported a wake with no signal")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("WaitTimeout returned after %v, want >= 50ms", elapsed)
	}

	// The mutex must be held again on return, timeout or not.
	if ok, err := mu.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	} else if ok {
		t.Fatal("mutex not reacquired after WaitTimeout")
	}
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
}
