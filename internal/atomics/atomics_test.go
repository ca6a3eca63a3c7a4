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

package atomics_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/parallelvm/shmrt/internal/atomics"
	"github.com/parallelvm/shmrt/internal/shmem"
)

func newAtomics(t *testing.T, size uint32) *atomics.Atomics {
	t.Helper()
	r, err := shmem.New(size)
	if err != nil {
		t.Fatalf("New region failed: %v", err)
	}
	return atomics.New(r)
}

func TestAtomics_LoadStoreRoundtrip(t *testing.T) {
	at := newAtomics(t, 4096)

	if err := at.Store32(0, -12345); err != nil {
		t.Fatalf("Store32 failed: %v", err)
	}
	got32, err := at.Load32(0)
	if err != nil {
		t.Fatalf("Load32 failed: %v", err)
	}
	if got32 != -12345 {
		t.Errorf("Load32 = %d, want -12345", got32)
	}

	if err := at.Store64(8, 0x0102030405060708); err != nil {
		t.Fatalf("Store64 failed: %v", err)
	}
	got64, err := at.Load64(8)
	if err != nil {
		t.Fatalf("Load64 failed: %v", err)
	}
	if got64 != 0x0102030405060708 {
		t.Errorf("Load64 = %#x, want 0x0102030405060708", got64)
	}
}

func TestAtomics_RMWReturnsPrior32(t *testing.T) {
	testCases := []struct {
		name      string
		initial   int32
		op        func(at *atomics.Atomics) (int32, error)
		wantPrior int32
		wantAfter int32
	}{
		{
			name:      "add",
			initial:   10,
			op:        func(at *atomics.Atomics) (int32, error) { return at.Add32(0, 5) },
			wantPrior: 10,
			wantAfter: 15,
		},
		{
			name:      "sub",
			initial:   10,
			op:        func(at *atomics.Atomics) (int32, error) { return at.Sub32(0, 3) },
			wantPrior: 10,
			wantAfter: 7,
		},
		{
			name:      "and",
			initial:   0b1111,
			op:        func(at *atomics.Atomics) (int32, error) { return at.And32(0, 0b0110) },
			wantPrior: 0b1111,
			wantAfter: 0b0110,
		},
		{
			name:      "or",
			initial:   0b1000,
			op:        func(at *atomics.Atomics) (int32, error) { return at.Or32(0, 0b0011) },
			wantPrior: 0b1000,
			wantAfter: 0b1011,
		},
		{
			name:      "xor",
			initial:   0b1010,
			op:        func(at *atomics.Atomics) (int32, error) { return at.Xor32(0, 0b0110) },
			wantPrior: 0b1010,
			wantAfter: 0b1100,
		},
		{
			name:      "exchange",
			initial:   42,
			op:        func(at *atomics.Atomics) (int32, error) { return at.Exchange32(0, 99) },
			wantPrior: 42,
			wantAfter: 99,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			at := newAtomics(t, 4096)
			if err := at.Store32(0, tc.initial); err != nil {
				t.Fatalf("Store32 failed: %v", err)
			}
			prior, err := tc.op(at)
			if err != nil {
				t.Fatalf("op failed: %v", err)
			}
			if prior != tc.wantPrior {
				t.Errorf("prior = %d, want %d", prior, tc.wantPrior)
			}
			after, err := at.Load32(0)
			if err != nil {
				t.Fatalf("Load32 failed: %v", err)
			}
			if after != tc.wantAfter {
				t.Errorf("after = %d, want %d", after, tc.wantAfter)
			}
		})
	}
}

func TestAtomics_RMWReturnsPrior64(t *testing.T) {
	testCases := []struct {
		name      string
		initial   int64
		op        func(at *atomics.Atomics) (int64, error)
		wantPrior int64
		wantAfter int64
	}{
		{
			name:      "add",
			initial:   1 << 40,
			op:        func(at *atomics.Atomics) (int64, error) { return at.Add64(0, 1) },
			wantPrior: 1 << 40,
			wantAfter: 1<<40 + 1,
		},
		{
			name:      "sub",
			initial:   100,
			op:        func(at *atomics.Atomics) (int64, error) { return at.Sub64(0, 101) },
			wantPrior: 100,
			wantAfter: -1,
		},
		{
			name:      "and",
			initial:   -1,
			op:        func(at *atomics.Atomics) (int64, error) { return at.And64(0, 0xff) },
			wantPrior: -1,
			wantAfter: 0xff,
		},
		{
			name:      "or",
			initial:   1 << 62,
			op:        func(at *atomics.Atomics) (int64, error) { return at.Or64(0, 1) },
			wantPrior: 1 << 62,
			wantAfter: 1<<62 | 1,
		},
		{
			name:      "xor",
			initial:   0xf0f0,
			op:        func(at *atomics.Atomics) (int64, error) { return at.Xor64(0, 0xffff) },
			wantPrior: 0xf0f0,
			wantAfter: 0x0f0f,
		},
		{
			name:      "exchange",
			initial:   7,
			op:        func(at *atomics.Atomics) (int64, error) { return at.Exchange64(0, 8) },
			wantPrior: 7,
			wantAfter: 8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			at := newAtomics(t, 4096)
			if err := at.Store64(0, tc.initial); err != nil {
				t.Fatalf("Store64 failed: %v", err)
			}
			prior, err := tc.op(at)
			if err != nil {
				t.Fatalf("op failed: %v", err)
			}
			if prior != tc.wantPrior {
				t.Errorf("prior = %d, want %d", prior, tc.wantPrior)
			}
			after, err := at.Load64(0)
			if err != nil {
				t.Fatalf("Load64 failed: %v", err)
			}
			if after != tc.wantAfter {
				t.Errorf("after = %d, want %d", after, tc.wantAfter)
			}
		})
	}
}

func TestAtomics_CompareExchange(t *testing.T) {
	at := newAtomics(t, 4096)
	if err := at.Store32(0, 5); err != nil {
		t.Fatalf("Store32 failed: %v", err)
	}

	// Mismatched expectation leaves the value alone and reports what was there.
	prior, err := at.CompareExchange32(0, 4, 9)
	if err != nil {
		t.Fatalf("CompareExchange32 failed: %v", err)
	}
	if prior != 5 {
		t.Errorf("prior = %d, want 5", prior)
	}
	if v, _ := at.Load32(0); v != 5 {
		t.Errorf("value changed on failed exchange: %d", v)
	}

	prior, err = at.CompareExchange32(0, 5, 9)
	if err != nil {
		t.Fatalf("CompareExchange32 failed: %v", err)
	}
	if prior != 5 {
		t.Errorf("prior = %d, want 5", prior)
	}
	if v, _ := at.Load32(0); v != 9 {
		t.Errorf("value = %d after successful exchange, want 9", v)
	}

	if err := at.Store64(8, -1); err != nil {
		t.Fatalf("Store64 failed: %v", err)
	}
	prior64, err := at.CompareExchange64(8, -1, 1<<50)
	if err != nil {
		t.Fatalf("CompareExchange64 failed: %v", err)
	}
	if prior64 != -1 {
		t.Errorf("prior64 = %d, want -1", prior64)
	}
	if v, _ := at.Load64(8); v != 1<<50 {
		t.Errorf("value = %d after successful exchange, want %d", v, int64(1<<50))
	}
}

func TestAtomics_BoundsAndAlignment(t *testing.T) {
	at := newAtomics(t, 256)

	testCases := []struct {
		name string
		op   func() error
	}{
		{"load32_past_end", func() error { _, err := at.Load32(256); return err }},
		{"load32_misaligned", func() error { _, err := at.Load32(2); return err }},
		{"store32_misaligned", func() error { return at.Store32(7, 1) }},
		{"load64_past_end", func() error { _, err := at.Load64(252); return err }},
		{"load64_misaligned", func() error { _, err := at.Load64(4); return err }},
		{"add64_misaligned", func() error { _, err := at.Add64(12, 1); return err }},
		{"wait32_past_end", func() error { _, err := at.Wait32(300, 0, 0); return err }},
		{"notify_misaligned", func() error { _, err := at.Notify(1, 1); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op()
			var boundsErr *shmem.BoundsError
			if !errors.As(err, &boundsErr) {
				t.Errorf("got %v, want BoundsError", err)
			}
		})
	}
}

func TestAtomics_NoLostUpdates(t *testing.T) {
	const threads = 8
	const increments = 10000

	at := newAtomics(t, 4096)
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				if _, err := at.Add64(0, 1); err != nil {
					t.Errorf("Add64 failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := at.Load64(0)
	if err != nil {
		t.Fatalf("Load64 failed: %v", err)
	}
	if got != threads*increments {
		t.Errorf("counter = %d, want %d", got, threads*increments)
	}
}

func TestWaitResult_String(t *testing.T) {
	testCases := []struct {
		r    atomics.WaitResult
		want string
	}{
		{atomics.WaitOK, "ok"},
		{atomics.WaitTimedOut, "timed-out"},
		{atomics.WaitNotEqual, "not-equal"},
	}
	for _, tc := range testCases {
		if got := tc.r.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
