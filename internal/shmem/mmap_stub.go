//go:build !unix

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

// NewFileRegion is not supported on this platform.
func NewFileRegion(path string, size uint32) (*Region, error) {
	return nil, ErrUnsupported
}

// OpenFileRegion is not supported on this platform.
func OpenFileRegion(path string) (*Region, error) {
	return nil, ErrUnsupported
}
