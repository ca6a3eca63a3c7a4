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

package shmrt

import (
	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/parallelvm/shmrt/internal/shmem"
	"github.com/parallelvm/shmrt/internal/threadlocal"
)

// Default configuration values.
const (
	DefaultMemorySize  uint32 = 16 * 1024 * 1024 // 16 MiB shared region
	DefaultPoolSize           = 4                // workers
	DefaultMaxThreads         = 16               // TLS thread slots
	DefaultTLSSlotSize uint32 = 1024             // bytes of TLS per thread
)

// Config is the runtime configuration consumed once at startup.
type Config struct {
	// MemorySize is the shared memory region capacity in bytes.
	MemorySize uint32

	// PoolSize is the number of pre-spawned workers.
	PoolSize int

	// MaxThreads bounds the thread ids accepted by thread-local storage.
	// Must be at least PoolSize.
	MaxThreads int

	// TLSSlotSize is the per-thread thread-local storage size in bytes;
	// a multiple of 8, at least 8.
	TLSSlotSize uint32

	// Spawner creates workers. Nil selects the in-process goroutine
	// spawner.
	Spawner Spawner

	// LockOSThreads pins each default-spawner worker to an OS thread.
	// Ignored when Spawner is set.
	LockOSThreads bool

	// Metrics, when non-nil, receives the pool's Prometheus collectors.
	Metrics prometheus.Registerer

	// Logger receives runtime lifecycle logging. Nil selects the logrus
	// standard logger.
	Logger *logrus.Logger
}

// DefaultConfig returns the documented defaults: 16 MiB of memory, 4
// workers, 16 thread slots, 1 KiB of TLS per thread.
func DefaultConfig() Config {
	return Config{
		MemorySize:  DefaultMemorySize,
		PoolSize:    DefaultPoolSize,
		MaxThreads:  DefaultMaxThreads,
		TLSSlotSize: DefaultTLSSlotSize,
	}
}

// ParseBytes converts a human-readable size ("16MiB", "64k") into a region
// byte count.
func ParseBytes(s string) (uint32, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid memory size %q", s)
	}
	if n <= 0 || n > shmem.MaxRegionSize {
		return 0, errors.Errorf("memory size %q out of range (max %s)",
			s, units.BytesSize(float64(shmem.MaxRegionSize)))
	}
	return uint32(n), nil
}

// withDefaults fills zero-valued fields with the documented defaults.
func (c Config) withDefaults() Config {
	if c.MemorySize == 0 {
		c.MemorySize = DefaultMemorySize
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxThreads == 0 {
		c.MaxThreads = DefaultMaxThreads
	}
	if c.TLSSlotSize == 0 {
		c.TLSSlotSize = DefaultTLSSlotSize
	}
	return c
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.PoolSize < 0 || c.MaxThreads < 0 {
		return errors.New("pool size and max threads must not be negative")
	}
	if c.MaxThreads < c.PoolSize {
		return errors.Errorf("max threads (%d) must be at least the pool size (%d)",
			c.MaxThreads, c.PoolSize)
	}
	if c.TLSSlotSize%8 != 0 {
		return errors.Errorf("TLS slot size (%d) must be a multiple of 8", c.TLSSlotSize)
	}
	tlsBlock := threadlocal.BlockBytes(c.TLSSlotSize, c.MaxThreads)
	if uint64(tlsBlock)+shmem.PageSize > uint64(c.MemorySize) {
		return errors.Errorf("memory size %s leaves no room beyond thread-local storage (%s)",
			units.BytesSize(float64(c.MemorySize)), units.BytesSize(float64(tlsBlock)))
	}
	return nil
}
