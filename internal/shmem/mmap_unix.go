//go:build unix

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
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func init() {
	unmapMemory = unix.Munmap
}

// NewFileRegion creates a file-backed region at path with the given capacity
// and maps it shared. A file-backed region survives process exit and can be
// opened by other processes with OpenFileRegion. The file is created
// exclusively; an existing file is an error.
//
// File-backed regions cannot Grow, since remapping would relocate the base
// address underneath concurrent accessors.
func NewFileRegion(path string, size uint32) (*Region, error) {
	if size == 0 || uint64(size) > MaxRegionSize {
		return nil, &AllocationError{Requested: uint64(size), Limit: MaxRegionSize, Reason: "invalid region size"}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create region file %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	if err := file.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to resize region file: %w", err)
	}

	mem, err := mmapFile(file, int(size))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to mmap region: %w", err)
	}

	return &Region{buf: mem, file: file, mapped: true}, nil
}

// OpenFileRegion maps an existing file-backed region created by
// NewFileRegion. The region capacity is the file size.
func OpenFileRegion(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open region file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat region file: %w", err)
	}
	if info.Size() <= 0 || info.Size() > MaxRegionSize {
		file.Close()
		return nil, &AllocationError{Requested: uint64(info.Size()), Limit: MaxRegionSize,
			Reason: "region file has invalid size"}
	}

	mem, err := mmapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap region: %w", err)
	}

	return &Region{buf: mem, file: file, mapped: true}, nil
}

// mmapFile maps size bytes of file as shared read-write memory. mmap returns
// page-aligned addresses, which satisfies the cache-line base alignment that
// New guarantees for heap regions.
func mmapFile(file *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}
