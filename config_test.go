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
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseBytes(t *testing.T) {
	testCases := []struct {
		in       string
		expected uint32
		wantErr  bool
	}{
		{in: "64KiB", expected: 64 * 1024},
		{in: "16MiB", expected: 16 * 1024 * 1024},
		{in: "16m", expected: 16 * 1024 * 1024},
		{in: "1k", expected: 1024},
		{in: "2GiB", expected: 1 << 31},
		{in: "4GiB", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "0", wantErr: true},
		{in: "bogus", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBytes(tc.in)
			if tc.wantErr {
				assert.Assert(t, err != nil, "ParseBytes(%q) succeeded, want error", tc.in)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got, tc.expected)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.MemorySize, uint32(16*1024*1024))
	assert.Equal(t, cfg.PoolSize, 4)
	assert.Equal(t, cfg.MaxThreads, 16)
	assert.Equal(t, cfg.TLSSlotSize, uint32(1024))
	assert.NilError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "negative_pool",
			mutate:  func(c *Config) { c.PoolSize = -1 },
			wantErr: true,
		},
		{
			name:    "threads_below_pool",
			mutate:  func(c *Config) { c.PoolSize = 8; c.MaxThreads = 4 },
			wantErr: true,
		},
		{
			name:    "tls_slot_not_multiple_of_8",
			mutate:  func(c *Config) { c.TLSSlotSize = 100 },
			wantErr: true,
		},
		{
			name:    "memory_consumed_by_tls",
			mutate:  func(c *Config) { c.MemorySize = 64 * 1024; c.TLSSlotSize = 64 * 1024 },
			wantErr: true,
		},
		{
			name:   "tight_but_sufficient",
			mutate: func(c *Config) { c.MemorySize = 1024 * 1024; c.PoolSize = 2; c.MaxThreads = 2; c.TLSSlotSize = 64 },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Assert(t, err != nil, "Validate succeeded, want error")
			} else {
				assert.NilError(t, err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{MemorySize: 1024 * 1024}.withDefaults()
	assert.Equal(t, cfg.MemorySize, uint32(1024*1024))
	assert.Equal(t, cfg.PoolSize, DefaultPoolSize)
	assert.Equal(t, cfg.MaxThreads, DefaultMaxThreads)
	assert.Equal(t, cfg.TLSSlotSize, DefaultTLSSlotSize)
}
