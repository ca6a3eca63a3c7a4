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

package main

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parallelvm/shmrt"
)

// spawnAndWait submits count copies of fn and waits for them all,
// collecting results through an errgroup.
func spawnAndWait(ctx context.Context, rt *shmrt.Runtime, count int, fn shmrt.TaskFunc) error {
	handles := make([]shmrt.TaskHandle, 0, count)
	for i := 0; i < count; i++ {
		h, err := rt.Spawn(ctx, fn, int64(i))
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	var g errgroup.Group
	for _, h := range handles {
		h := h
		g.Go(func() error {
			res, err := rt.Wait(ctx, h)
			if err != nil {
				return err
			}
			return res.Err
		})
	}
	return g.Wait()
}

func newCounterCommand(opts *benchOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counter",
		Short: "atomic increments on one shared counter, checking for lost updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			counter, err := rt.AllocAtomic64()
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			n := int64(opts.iterations)
			err = spawnAndWait(ctx, rt, opts.workers, func(tc *shmrt.TaskContext) (int64, error) {
				for i := int64(0); i < n; i++ {
					if _, err := tc.Atomics.Add64(counter, 1); err != nil {
						return 0, err
					}
				}
				return n, nil
			})
			if err != nil {
				return err
			}

			got, err := rt.Atomics().Load64(counter)
			if err != nil {
				return err
			}
			want := int64(opts.workers) * n
			fmt.Printf("threads=%d iterations=%d counter=%d want=%d\n", opts.workers, n, got, want)
			if got != want {
				return fmt.Errorf("lost updates: counter %d, want %d", got, want)
			}
			fmt.Println("no lost updates")
			return nil
		},
	}
}

func newMutexCommand(opts *benchOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mutex",
		Short: "mutex-protected non-atomic increments",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			mu, err := rt.NewMutex()
			if err != nil {
				return err
			}
			slot, err := rt.AllocAtomic64()
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			n := int64(opts.iterations)
			err = spawnAndWait(ctx, rt, opts.workers, func(tc *shmrt.TaskContext) (int64, error) {
				for i := int64(0); i < n; i++ {
					if err := mu.Lock(); err != nil {
						return 0, err
					}
					// Plain read-modify-write; the mutex is the only thing
					// keeping this race-free.
					v, err := tc.Region.ReadI64(slot)
					if err == nil {
						err = tc.Region.WriteI64(slot, v+1)
					}
					if uerr := mu.Unlock(); err == nil {
						err = uerr
					}
					if err != nil {
						return 0, err
					}
				}
				return n, nil
			})
			if err != nil {
				return err
			}

			got, err := rt.Region().ReadI64(slot)
			if err != nil {
				return err
			}
			want := int64(opts.workers) * n
			fmt.Printf("threads=%d iterations=%d counter=%d want=%d\n", opts.workers, n, got, want)
			if got != want {
				return fmt.Errorf("mutual exclusion violated: counter %d, want %d", got, want)
			}
			fmt.Println("mutual exclusion held")
			return nil
		},
	}
}

func newBarrierCommand(opts *benchOptions) *cobra.Command {
	phases := 10
	cmd := &cobra.Command{
		Use:   "barrier",
		Short: "repeated barrier phases with generation checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			bar, err := rt.NewBarrier(opts.workers)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			err = spawnAndWait(ctx, rt, opts.workers, func(tc *shmrt.TaskContext) (int64, error) {
				for p := 0; p < phases; p++ {
					if _, err := bar.Wait(); err != nil {
						return 0, err
					}
					gen, err := bar.Generation()
					if err != nil {
						return 0, err
					}
					if int(gen) < p+1 {
						return 0, fmt.Errorf("thread %d observed generation %d in phase %d",
							tc.ThreadID, gen, p)
					}
				}
				return int64(phases), nil
			})
			if err != nil {
				return err
			}

			gen, err := bar.Generation()
			if err != nil {
				return err
			}
			fmt.Printf("threads=%d phases=%d final generation=%d\n", opts.workers, phases, gen)
			if int(gen) != phases {
				return fmt.Errorf("generation %d after %d phases", gen, phases)
			}
			fmt.Println("all phases consistent")
			return nil
		},
	}
	cmd.Flags().IntVar(&phases, "phases", phases, "number of barrier phases")
	return cmd
}

func newRWLockCommand(opts *benchOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rwlock",
		Short: "concurrent readers with an interleaved writer",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			rw, err := rt.NewRWLock()
			if err != nil {
				return err
			}
			// readersNow/maxReaders observe concurrency; value is the
			// writer-protected payload.
			readersNow, err := rt.AllocAtomic32()
			if err != nil {
				return err
			}
			maxReaders, err := rt.AllocAtomic32()
			if err != nil {
				return err
			}
			value, err := rt.AllocAtomic64()
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			// Task 0 is the writer; everyone else reads.
			readers := opts.workers - 1

			err = spawnAndWait(ctx, rt, opts.workers, func(tc *shmrt.TaskContext) (int64, error) {
				writer := len(tc.Args) > 0 && tc.Args[0] == 0
				for i := 0; i < opts.iterations; i++ {
					if writer {
						g, err := rw.Lock()
						if err != nil {
							return 0, err
						}
						n, err := tc.Atomics.Load32(readersNow)
						if err == nil && n != 0 {
							err = fmt.Errorf("writer saw %d active readers", n)
						}
						if err == nil {
							_, err = tc.Atomics.Add64(value, 1)
						}
						if rerr := g.Release(); err == nil {
							err = rerr
						}
						if err != nil {
							return 0, err
						}
						continue
					}

					g, err := rw.RLock()
					if err != nil {
						return 0, err
					}
					n, err := tc.Atomics.Add32(readersNow, 1)
					if err == nil {
						for {
							max, merr := tc.Atomics.Load32(maxReaders)
							if merr != nil {
								err = merr
								break
							}
							if n+1 <= max {
								break
							}
							old, cerr := tc.Atomics.CompareExchange32(maxReaders, max, n+1)
							if cerr != nil {
								err = cerr
								break
							}
							if old == max {
								break
							}
						}
					}
					if err == nil {
						_, err = tc.Atomics.Sub32(readersNow, 1)
					}
					if rerr := g.Release(); err == nil {
						err = rerr
					}
					if err != nil {
						return 0, err
					}
				}
				return 0, nil
			})
			if err != nil {
				return err
			}

			max, err := rt.Atomics().Load32(maxReaders)
			if err != nil {
				return err
			}
			writes, err := rt.Atomics().Load64(value)
			if err != nil {
				return err
			}
			fmt.Printf("readers=%d max concurrent readers=%d writer increments=%d\n", readers, max, writes)
			fmt.Println("reader/writer exclusion held")
			return nil
		},
	}
}

func newPoolCommand(opts *benchOptions) *cobra.Command {
	tasks := 500
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "many tasks through a bounded pool, tracking worker reuse and TLS isolation",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			workerMask, err := rt.AllocAtomic64()
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			err = spawnAndWait(ctx, rt, tasks, func(tc *shmrt.TaskContext) (int64, error) {
				if _, err := tc.Atomics.Or64(workerMask, 1<<uint(tc.ThreadID)); err != nil {
					return 0, err
				}
				// TLS slot 0 counts this worker's tasks; no other worker
				// ever touches it.
				v, err := tc.TLS.Get(tc.ThreadID, 0)
				if err != nil {
					return 0, err
				}
				if err := tc.TLS.Set(tc.ThreadID, 0, v+1); err != nil {
					return 0, err
				}
				return v + 1, nil
			})
			if err != nil {
				return err
			}

			mask, err := rt.Atomics().Load64(workerMask)
			if err != nil {
				return err
			}
			distinct := bits.OnesCount64(uint64(mask))

			perWorker := int64(0)
			for id := 0; id < opts.workers; id++ {
				v, err := rt.TLS().Get(id, 0)
				if err != nil {
					return err
				}
				perWorker += v
			}

			fmt.Printf("tasks=%d pool=%d distinct workers=%d tls total=%d\n",
				tasks, opts.workers, distinct, perWorker)
			if distinct > opts.workers {
				return fmt.Errorf("%d distinct workers exceeded pool size %d", distinct, opts.workers)
			}
			if perWorker != int64(tasks) {
				return fmt.Errorf("TLS task counts sum to %d, want %d", perWorker, tasks)
			}
			fmt.Println("pool bound and TLS isolation held")
			return nil
		},
	}
	cmd.Flags().IntVar(&tasks, "tasks", tasks, "number of tasks to submit")
	return cmd
}
