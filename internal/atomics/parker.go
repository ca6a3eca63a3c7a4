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
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// parker is the portable wait/notify backend. Waiters are queued per offset
// in FIFO order and woken by closing their channel.
//
// The lost-wake race is closed the way a futex closes it: the decisive
// snapshot of the watched value is taken under the same lock notify takes,
// and the waiter is queued only if the value still matches. A notify that
// runs after the value changed therefore either sees the waiter in the
// queue, or the waiter saw the changed value and was never queued — so a
// WaitNotEqual return can never absorb a wake meant for a parked waiter.
type parker struct {
	mu      sync.Mutex
	waiters map[uint32][]*parkNode
}

type parkNode struct {
	ch chan struct{}
}

func newParker() *parker {
	return &parker{waiters: make(map[uint32][]*parkNode)}
}

func (pk *parker) name() string { return "parker" }

func (pk *parker) wait32(offset uint32, p *int32, expected int32, timeout time.Duration) (WaitResult, error) {
	node, ok := pk.enqueueIf(offset, func() bool {
		return atomic.LoadInt32(p) == expected
	})
	if !ok {
		return WaitNotEqual, nil
	}
	return pk.block(offset, node, timeout)
}

func (pk *parker) wait64(offset uint32, p *int64, expected int64, timeout time.Duration) (WaitResult, error) {
	node, ok := pk.enqueueIf(offset, func() bool {
		return atomic.LoadInt64(p) == expected
	})
	if !ok {
		return WaitNotEqual, nil
	}
	return pk.block(offset, node, timeout)
}

func (pk *parker) notify(offset uint32, _ unsafe.Pointer, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	pk.mu.Lock()
	queue := pk.waiters[offset]
	n := count
	if n > len(queue) {
		n = len(queue)
	}
	for i := 0; i < n; i++ {
		close(queue[i].ch)
	}
	if n == len(queue) {
		delete(pk.waiters, offset)
	} else {
		pk.waiters[offset] = queue[n:]
	}
	pk.mu.Unlock()

	return n, nil
}

// enqueueIf registers a waiter for offset only if still reports the watched
// value unchanged. The check runs under the queue lock, serializing it
// against notify.
func (pk *parker) enqueueIf(offset uint32, still func() bool) (*parkNode, bool) {
	pk.mu.Lock()
	defer pk.mu.Unlock()
	if !still() {
		return nil, false
	}
	node := &parkNode{ch: make(chan struct{})}
	pk.waiters[offset] = append(pk.waiters[offset], node)
	return node, true
}

// remove unregisters node if it is still queued. It returns false if the
// node was already claimed by a notify, in which case the wake must be
// honored.
func (pk *parker) remove(offset uint32, node *parkNode) bool {
	pk.mu.Lock()
	defer pk.mu.Unlock()
	queue := pk.waiters[offset]
	for i, n := range queue {
		if n == node {
			queue = append(queue[:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(pk.waiters, offset)
			} else {
				pk.waiters[offset] = queue
			}
			return true
		}
	}
	return false
}

func (pk *parker) block(offset uint32, node *parkNode, timeout time.Duration) (WaitResult, error) {
	if timeout <= 0 {
		<-node.ch
		return WaitOK, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-node.ch:
		return WaitOK, nil
	case <-timer.C:
		if !pk.remove(offset, node) {
			// A notify claimed the node while the timer fired; count the
			// wake so the notifier's woken count stays accurate.
			return WaitOK, nil
		}
		return WaitTimedOut, nil
	}
}
