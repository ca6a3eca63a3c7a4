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

package shmem

import "sync"

// Arena is a bump allocator over a range of a region. Every allocation is
// rounded up to a whole number of cache lines and starts on a cache-line
// boundary, so two arena allocations never share a line. Allocations are
// never freed individually; the arena is abandoned as a whole when the
// runtime shuts down.
type Arena struct {
	mu     sync.Mutex
	region *Region
	base   uint32 // first offset owned by the arena
	next   uint32 // next free offset, always cache-line aligned
	limit  uint32 // one past the last offset owned by the arena
}

// NewArena creates an arena spanning [base, limit) of the region. The base
// is rounded up to the next cache-line boundary.
func NewArena(region *Region, base, limit uint32) (*Arena, error) {
	alignedBase := AlignUp(base, CacheLineSize)
	if limit > region.Capacity() || alignedBase > limit {
		return nil, &AllocationError{Requested: uint64(limit), Limit: uint64(region.Capacity()),
			Reason: "arena range outside region"}
	}
	return &Arena{region: region, base: alignedBase, next: alignedBase, limit: limit}, nil
}

// Alloc carves size bytes out of the arena and returns the offset of the
// block. The block is cache-line aligned and zero-filled (region memory
// starts zeroed and arena blocks are never reused).
func (a *Arena) Alloc(size uint32) (uint32, error) {
	if size == 0 {
		return 0, &AllocationError{Requested: 0, Limit: uint64(a.limit), Reason: "zero-size allocation"}
	}
	rounded := AlignUp(size, CacheLineSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	if uint64(a.next)+uint64(rounded) > uint64(a.limit) {
		return 0, &AllocationError{Requested: uint64(rounded), Limit: uint64(a.limit - a.next),
			Reason: "arena exhausted"}
	}
	offset := a.next
	a.next += rounded
	return offset, nil
}

// Remaining returns the number of bytes still available in the arena.
func (a *Arena) Remaining() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit - a.next
}

// Used returns the number of bytes already carved out of the arena.
func (a *Arena) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next - a.base
}

// AlignUp rounds n up to the next multiple of align. align must be a power
// of two.
func AlignUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
