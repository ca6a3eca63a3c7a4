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

import (
	"encoding/binary"
	"os"
	"unsafe"
)

// Memory layout constants
const (
	// CacheLineSize is the alignment unit for all carved storage. Every
	// primitive's backing offset is rounded up to this boundary so that
	// independently-contended primitives never share a cache line.
	CacheLineSize = 64

	// PageSize is the growth granularity of a region (64 KiB, matching the
	// page size of linear-memory virtual machines).
	PageSize = 64 * 1024

	// MaxRegionSize caps region capacity so that every offset fits a uint32.
	MaxRegionSize = 1 << 31
)

// Platform-specific functions (implemented in platform-specific files)
var (
	// unmapMemory unmaps a memory-mapped region
	unmapMemory func([]byte) error
)

// Region is a fixed-capacity shared byte buffer. All offsets handed out by
// the runtime are relative to the start of the region, so growing the region
// (which replaces the backing buffer) is transparent to offset holders.
//
// Non-atomic accessors (ReadI32, WriteI32, ...) are safe only for memory that
// a single thread owns by construction, such as thread-local storage slots.
// Memory shared between threads must be accessed through the atomics package.
type Region struct {
	buf    []byte   // backing buffer, base aligned to CacheLineSize
	file   *os.File // non-nil for file-backed regions
	mapped bool     // buf is an mmap that must be unmapped on Close
	closed bool
}

// New creates a heap-backed region of the given capacity. The buffer is
// zero-filled and its base address is cache-line aligned.
func New(size uint32) (*Region, error) {
	if size == 0 || uint64(size) > MaxRegionSize {
		return nil, &AllocationError{Requested: uint64(size), Limit: MaxRegionSize, Reason: "invalid region size"}
	}
	return &Region{buf: newAlignedBuffer(int(size))}, nil
}

// newAlignedBuffer allocates size bytes whose base address is aligned to
// CacheLineSize. Alignment of the base guarantees that cache-line-aligned
// offsets map to cache-line-aligned addresses, which the futex and 64-bit
// atomic paths rely on.
func newAlignedBuffer(size int) []byte {
	raw := make([]byte, size+CacheLineSize)
	skip := 0
	if rem := uintptr(unsafe.Pointer(&raw[0])) & (CacheLineSize - 1); rem != 0 {
		skip = CacheLineSize - int(rem)
	}
	return raw[skip : skip+size : skip+size]
}

// Capacity returns the region capacity in bytes.
func (r *Region) Capacity() uint32 {
	return uint32(len(r.buf))
}

// Bytes returns the backing buffer. The returned slice is invalidated by
// Grow and Close.
func (r *Region) Bytes() []byte {
	return r.buf
}

// CheckRange validates that [offset, offset+size) lies within the region.
func (r *Region) CheckRange(offset, size uint32) error {
	if r.closed {
		return ErrRegionClosed
	}
	if uint64(offset)+uint64(size) > uint64(len(r.buf)) {
		return &BoundsError{Offset: offset, Size: size, Capacity: uint32(len(r.buf))}
	}
	return nil
}

// ReadI32 performs a bounds-checked, non-atomic 4-byte read.
func (r *Region) ReadI32(offset uint32) (int32, error) {
	if err := r.CheckRange(offset, 4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(r.buf[offset:])), nil
}

// WriteI32 performs a bounds-checked, non-atomic 4-byte write.
func (r *Region) WriteI32(offset uint32, v int32) error {
	if err := r.CheckRange(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.buf[offset:], uint32(v))
	return nil
}

// ReadI64 performs a bounds-checked, non-atomic 8-byte read.
func (r *Region) ReadI64(offset uint32) (int64, error) {
	if err := r.CheckRange(offset, 8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(r.buf[offset:])), nil
}

// WriteI64 performs a bounds-checked, non-atomic 8-byte write.
func (r *Region) WriteI64(offset uint32, v int64) error {
	if err := r.CheckRange(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(r.buf[offset:], uint64(v))
	return nil
}

// Grow extends the region by extraPages pages of PageSize bytes each. The
// backing buffer type is not resizable in place, so growth allocates a new
// buffer and copies the existing contents. Offsets remain valid because they
// are relative; slices and pointers obtained before Grow are not.
//
// Grow must not race with any other access to the region, and in particular
// must not run while any thread is parked on a wait address inside the old
// buffer. The runtime only grows before workers start.
func (r *Region) Grow(extraPages uint32) error {
	if r.closed {
		return ErrRegionClosed
	}
	if r.mapped {
		return &AllocationError{Requested: uint64(extraPages) * PageSize, Limit: uint64(len(r.buf)),
			Reason: "file-backed regions cannot grow"}
	}
	if extraPages == 0 {
		return nil
	}
	newSize := uint64(len(r.buf)) + uint64(extraPages)*PageSize
	if newSize > MaxRegionSize {
		return &AllocationError{Requested: newSize, Limit: MaxRegionSize, Reason: "region size limit exceeded"}
	}
	grown := newAlignedBuffer(int(newSize))
	copy(grown, r.buf)
	r.buf = grown
	return nil
}

// Close releases the region. For file-backed regions the mapping is unmapped
// and the file closed; heap-backed regions just drop the buffer. Any access
// after Close returns ErrRegionClosed.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.mapped && r.buf != nil && unmapMemory != nil {
		if err := unmapMemory(r.buf); err != nil {
			firstErr = err
		}
	}
	r.buf = nil

	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	return firstErr
}
