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
	"errors"
	"fmt"
)

// ErrUnsupported is returned when file-backed regions are requested on a
// platform without mmap support.
var ErrUnsupported = errors.New("shmem: file-backed regions not supported on this platform")

// ErrRegionClosed is returned for any access to a region after Close.
var ErrRegionClosed = errors.New("shmem: region closed")

// BoundsError reports an access whose offset plus size exceeds the region
// capacity, or whose offset violates the required alignment.
type BoundsError struct {
	Offset   uint32 // requested offset
	Size     uint32 // access size in bytes
	Capacity uint32 // region capacity at the time of the access
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("shmem: access out of range: offset %d size %d capacity %d",
		e.Offset, e.Size, e.Capacity)
}

// AllocationError reports that a region could not be created or grown, or
// that an arena ran out of space.
type AllocationError struct {
	Requested uint64 // bytes requested
	Limit     uint64 // bytes available or maximum allowed
	Reason    string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("shmem: allocation failed: requested %d, limit %d: %s",
		e.Requested, e.Limit, e.Reason)
}
