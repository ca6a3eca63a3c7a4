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

package threadlocal_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/parallelvm/shmrt/internal/shmem"
	"github.com/parallelvm/shmrt/internal/threadlocal"
)

func newTable(t *testing.T, slotSize uint32, maxThreads int) *threadlocal.Table {
	t.Helper()
	r, err := shmem.New(shmem.PageSize)
	if err != nil {
		t.Fatalf("New region failed: %v", err)
	}
	table, err := threadlocal.New(r, 0, slotSize, maxThreads)
	if err != nil {
		t.Fatalf("New table failed: %v", err)
	}
	return table
}

func TestTable_NewValidation(t *testing.T) {
	r, err := shmem.New(shmem.PageSize)
	if err != nil {
		t.Fatalf("New region failed: %v", err)
	}

	testCases := []struct {
		name       string
		base       uint32
		slotSize   uint32
		maxThreads int
	}{
		{"zero_threads", 0, 64, 0},
		{"negative_threads", 0, 64, -1},
		{"slot_too_small", 0, 4, 4},
		{"base_misaligned", 8, 64, 4},
		{"block_past_end", 0, shmem.PageSize, 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := threadlocal.New(r, tc.base, tc.slotSize, tc.maxThreads); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestTable_SlotIsolation(t *testing.T) {
	table := newTable(t, 64, 4)

	if err := table.Set(0, 0, 111); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := table.Set(1, 0, 222); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	a, err := table.Get(0, 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	b, err := table.Get(1, 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a != 111 || b != 222 {
		t.Errorf("Get = (%d, %d), want (111, 222)", a, b)
	}

	// Unset slots of other threads stay zero.
	for id := 2; id < 4; id++ {
		v, err := table.Get(id, 0)
		if err != nil {
			t.Fatalf("Get(%d, 0) failed: %v", id, err)
		}
		if v != 0 {
			t.Errorf("Get(%d, 0) = %d, want 0", id, v)
		}
	}
}

func TestTable_InvalidThreadID(t *testing.T) {
	table := newTable(t, 64, 4)

	for _, id := range []int{-1, 4, 100} {
		_, err := table.Get(id, 0)
		var idErr *threadlocal.InvalidThreadIDError
		if !errors.As(err, &idErr) {
			t.Errorf("Get(%d, 0) = %v, want InvalidThreadIDError", id, err)
			continue
		}
		if idErr.ThreadID != id || idErr.MaxThreads != 4 {
			t.Errorf("error fields = {%d %d}, want {%d 4}", idErr.ThreadID, idErr.MaxThreads, id)
		}
		if err := table.Set(id, 0, 1); !errors.As(err, &idErr) {
			t.Errorf("Set(%d, 0) = %v, want InvalidThreadIDError", id, err)
		}
	}
}

func TestTable_KeyBounds(t *testing.T) {
	table := newTable(t, 64, 4)
	if keys := table.Keys(); keys != 8 {
		t.Fatalf("Keys() = %d, want 8", keys)
	}

	if err := table.Set(0, 7, 1); err != nil {
		t.Fatalf("Set at last key failed: %v", err)
	}
	if _, err := table.Get(0, 8); err == nil {
		t.Error("Get past last key succeeded, want error")
	}
	if err := table.Set(0, -1, 1); err == nil {
		t.Error("Set with negative key succeeded, want error")
	}
}

func TestTable_ConcurrentDisjointSlots(t *testing.T) {
	const threads = 8
	const writes = 1000

	table := newTable(t, 64, threads)
	var wg sync.WaitGroup
	for id := 0; id < threads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				if err := table.Set(id, 0, int64(id*writes+i)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for id := 0; id < threads; id++ {
		v, err := table.Get(id, 0)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if want := int64(id*writes + writes - 1); v != want {
			t.Errorf("thread %d slot = %d, want %d", id, v, want)
		}
	}
}

func TestBlockBytes(t *testing.T) {
	testCases := []struct {
		slotSize   uint32
		maxThreads int
		expected   uint32
	}{
		{64, 4, 256},
		{100, 2, 256},  // slot rounds up to 128
		{1024, 16, 16384},
	}
	for _, tc := range testCases {
		if got := threadlocal.BlockBytes(tc.slotSize, tc.maxThreads); got != tc.expected {
			t.Errorf("BlockBytes(%d, %d) = %d, want %d", tc.slotSize, tc.maxThreads, got, tc.expected)
		}
	}
}
