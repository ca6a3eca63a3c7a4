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

// Package threadlocal provides per-thread key/value storage carved out of a
// shared memory region.
//
// Slots are addressed as base + thread_id*slot_size + key*8. Reads and
// writes are deliberately non-atomic: no two threads ever address the same
// slot range by construction, so no synchronization is needed. That safety
// argument collapses the moment a thread id is shared, so ids are validated
// on every access.
package threadlocal

import (
	"fmt"

	"github.com/parallelvm/shmrt/internal/shmem"
)

// InvalidThreadIDError reports a TLS access with an out-of-range thread id.
type InvalidThreadIDError struct {
	ThreadID   int
	MaxThreads int
}

func (e *InvalidThreadIDError) Error() string {
	return fmt.Sprintf("threadlocal: thread id %d out of range [0, %d)", e.ThreadID, e.MaxThreads)
}

// Table is a thread_id x key table of int64 values over a contiguous block
// of a region. Each thread's slot range starts on a cache-line boundary so
// neighboring threads never share a line.
type Table struct {
	region     *shmem.Region
	base       uint32
	slotSize   uint32 // bytes per thread, multiple of the cache line size
	maxThreads int
}

// SlotBytes returns the per-thread block size for a requested slot size,
// rounded up to a whole number of cache lines.
func SlotBytes(slotSize uint32) uint32 {
	return shmem.AlignUp(slotSize, shmem.CacheLineSize)
}

// BlockBytes returns the total block size a table needs for maxThreads
// threads with the given per-thread slot size.
func BlockBytes(slotSize uint32, maxThreads int) uint32 {
	return SlotBytes(slotSize) * uint32(maxThreads)
}

// New creates a table over [base, base+BlockBytes) of the region. slotSize
// is the usable bytes per thread and must hold at least one 8-byte key; base
// must be cache-line aligned.
func New(region *shmem.Region, base, slotSize uint32, maxThreads int) (*Table, error) {
	if maxThreads <= 0 {
		return nil, fmt.Errorf("threadlocal: maxThreads must be positive, got %d", maxThreads)
	}
	if slotSize < 8 {
		return nil, fmt.Errorf("threadlocal: slot size %d smaller than one value", slotSize)
	}
	if base%shmem.CacheLineSize != 0 {
		return nil, fmt.Errorf("threadlocal: base offset %d not cache-line aligned", base)
	}
	aligned := SlotBytes(slotSize)
	if err := region.CheckRange(base, aligned*uint32(maxThreads)); err != nil {
		return nil, err
	}
	return &Table{region: region, base: base, slotSize: aligned, maxThreads: maxThreads}, nil
}

// Keys returns the number of keys available per thread.
func (t *Table) Keys() int {
	return int(t.slotSize / 8)
}

// MaxThreads returns the number of thread slots in the table.
func (t *Table) MaxThreads() int {
	return t.maxThreads
}

// Get reads the value for (threadID, key). The read is non-atomic; it is
// only safe because the slot belongs exclusively to threadID.
func (t *Table) Get(threadID, key int) (int64, error) {
	off, err := t.offset(threadID, key)
	if err != nil {
		return 0, err
	}
	return t.region.ReadI64(off)
}

// Set writes the value for (threadID, key).
func (t *Table) Set(threadID, key int, value int64) error {
	off, err := t.offset(threadID, key)
	if err != nil {
		return err
	}
	return t.region.WriteI64(off, value)
}

func (t *Table) offset(threadID, key int) (uint32, error) {
	if threadID < 0 || threadID >= t.maxThreads {
		return 0, &InvalidThreadIDError{ThreadID: threadID, MaxThreads: t.maxThreads}
	}
	if key < 0 || key >= t.Keys() {
		return 0, &shmem.BoundsError{
			Offset:   t.base + uint32(threadID)*t.slotSize,
			Size:     t.slotSize,
			Capacity: t.region.Capacity(),
		}
	}
	return t.base + uint32(threadID)*t.slotSize + uint32(key)*8, nil
}
