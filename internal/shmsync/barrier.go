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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/parallelvm/shmrt/internal/atomics"
)

// BarrierRole reports which role a thread played in a barrier phase.
type BarrierRole int

const (
	// Follower threads arrived before the phase was complete and slept
	// until the leader advanced the generation.
	Follower BarrierRole = iota

	// Leader is the last thread to arrive; it resets the arrival count,
	// advances the generation, and wakes the followers.
	Leader
)

func (r BarrierRole) String() string {
	if r == Leader {
		return "leader"
	}
	return "follower"
}

// Barrier synchronizes a fixed group of threads at a phase boundary. State
// is two adjacent 32-bit words: an arrival count and a generation counter.
// The generation counter makes the barrier reusable for unlimited phases and
// disambiguates spurious wake-ups: a follower sleeps until the generation it
// observed on arrival has moved.
type Barrier struct {
	at       *atomics.Atomics
	countOff uint32
	genOff   uint32
	parties  int32
}

// NewBarrier creates a barrier for parties threads over two adjacent 4-byte
// words starting at offset. The offset must be cache-line aligned and both
// words zero-initialized.
func NewBarrier(at *atomics.Atomics, offset uint32, parties int) (*Barrier, error) {
	if parties <= 0 {
		return nil, fmt.Errorf("shmsync: barrier requires at least one party, got %d", parties)
	}
	if offset%8 != 0 {
		return nil, fmt.Errorf("shmsync: barrier offset %d must be 8-byte aligned", offset)
	}
	return &Barrier{at: at, countOff: offset, genOff: offset + 4, parties: int32(parties)}, nil
}

// Parties returns the number of threads the barrier synchronizes.
func (b *Barrier) Parties() int { return int(b.parties) }

// Offset returns the offset of the arrival count word; the generation word
// is the adjacent word at Offset()+4.
func (b *Barrier) Offset() uint32 { return b.countOff }

// Generation returns the current phase number.
func (b *Barrier) Generation() (int32, error) {
	return b.at.Load32(b.genOff)
}

// Wait blocks until all parties have called Wait for the current phase. The
// last arrival becomes the Leader: it resets the count, advances the
// generation, and wakes everyone parked on it. All other threads return
// Follower once they observe the new generation.
func (b *Barrier) Wait() (BarrierRole, error) {
	role, _, err := b.wait(0)
	return role, err
}

// WaitTimeout is Wait with a bound. On timeout it retracts the caller's
// arrival and returns ok false; the barrier stays usable for the remaining
// parties. If the phase completes while the retraction is in progress, the
// caller is treated as a Follower of that phase instead.
func (b *Barrier) WaitTimeout(timeout time.Duration) (BarrierRole, bool, error) {
	return b.wait(timeout)
}

// The generation must be read before announcing arrival; reading it after
// could observe the next phase and miss the wake for this one.
func (b *Barrier) wait(timeout time.Duration) (BarrierRole, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	gen, err := b.at.Load32(b.genOff)
	if err != nil {
		return Follower, false, err
	}

	prev, err := b.at.Add32(b.countOff, 1)
	if err != nil {
		return Follower, false, err
	}
	if prev+1 == b.parties {
		if err := b.at.Store32(b.countOff, 0); err != nil {
			return Leader, true, err
		}
		if _, err := b.at.Add32(b.genOff, 1); err != nil {
			return Leader, true, err
		}
		if _, err := b.at.NotifyAll(b.genOff); err != nil {
			return Leader, true, err
		}
		return Leader, true, nil
	}

	for {
		remaining := time.Duration(0)
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return b.retract(gen)
			}
		}
		res, err := b.at.Wait32(b.genOff, gen, remaining)
		if err != nil {
			return Follower, false, err
		}
		cur, err := b.at.Load32(b.genOff)
		if err != nil {
			return Follower, false, err
		}
		if cur != gen {
			return Follower, true, nil
		}
		if res == atomics.WaitTimedOut {
			return b.retract(gen)
		}
		// Spurious wake within the same generation; park again.
	}
}

// retract withdraws a timed-out arrival by decrementing the count, unless
// the phase completed (or is completing) in the meantime. The decrement must
// not outlive the generation it belongs to: a CAS on the count word alone
// could succeed against a later phase whose count happens to match the stale
// value, consuming an arrival that was never ours and stranding that phase
// short of its parties. Count and generation are adjacent words, so a single
// 64-bit compare-exchange over the pair pins the decrement to our generation.
// A count of zero under an unchanged generation means the leader is
// mid-release; spin until the generation moves and report Follower.
func (b *Barrier) retract(gen int32) (BarrierRole, bool, error) {
	for {
		pair, err := b.at.Load64(b.countOff)
		if err != nil {
			return Follower, false, err
		}
		count, cur := unpackBarrierPair(pair)
		if cur != gen {
			return Follower, true, nil
		}
		if count == 0 {
			continue
		}
		old, err := b.at.CompareExchange64(b.countOff, pair, packBarrierPair(count-1, gen))
		if err != nil {
			return Follower, false, err
		}
		if old == pair {
			return Follower, false, nil
		}
	}
}

// The count word lives at the lower offset and the generation word at the
// higher one; pack and unpack mirror the byte layout the 64-bit atomics
// observe so they hold on any byte order.
func packBarrierPair(count, gen int32) int64 {
	var buf [8]byte
	binary.NativeEndian.PutUint32(buf[0:4], uint32(count))
	binary.NativeEndian.PutUint32(buf[4:8], uint32(gen))
	return int64(binary.NativeEndian.Uint64(buf[:]))
}

func unpackBarrierPair(pair int64) (count, gen int32) {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], uint64(pair))
	return int32(binary.NativeEndian.Uint32(buf[0:4])), int32(binary.NativeEndian.Uint32(buf[4:8]))
}
