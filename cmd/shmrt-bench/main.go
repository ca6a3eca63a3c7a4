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

// shmrt-bench drives the runtime through its documented scenarios: lost
// update detection on a shared counter, mutex-protected critical sections,
// barrier phase consistency, reader-writer concurrency, and pool dispatch
// bounds. The layout subcommand prints the carved memory map.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/parallelvm/shmrt"
)

type benchOptions struct {
	memory     string
	workers    int
	threads    int
	iterations int
	verbose    bool
}

func addRuntimeFlags(fs *pflag.FlagSet, opts *benchOptions) {
	fs.StringVar(&opts.memory, "memory", "16MiB", "shared memory region size")
	fs.IntVar(&opts.workers, "workers", shmrt.DefaultPoolSize, "worker pool size")
	fs.IntVar(&opts.threads, "threads", shmrt.DefaultMaxThreads, "maximum thread ids for TLS")
	fs.IntVar(&opts.iterations, "iterations", 10000, "per-thread iteration count")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
}

func (o *benchOptions) buildRuntime() (*shmrt.Runtime, error) {
	size, err := shmrt.ParseBytes(o.memory)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
	return shmrt.New(shmrt.Config{
		MemorySize: size,
		PoolSize:   o.workers,
		MaxThreads: o.threads,
	})
}

func main() {
	opts := &benchOptions{}

	root := &cobra.Command{
		Use:           "shmrt-bench",
		Short:         "exercise the shared-memory thread runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addRuntimeFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newCounterCommand(opts),
		newMutexCommand(opts),
		newBarrierCommand(opts),
		newRWLockCommand(opts),
		newPoolCommand(opts),
		newLayoutCommand(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLayoutCommand(opts *benchOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "print the runtime's carved memory map",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			// Allocate one of each primitive so the map shows real offsets.
			mu, err := rt.NewMutex()
			if err != nil {
				return err
			}
			bar, err := rt.NewBarrier(opts.workers)
			if err != nil {
				return err
			}
			rw, err := rt.NewRWLock()
			if err != nil {
				return err
			}
			counter, err := rt.AllocAtomic64()
			if err != nil {
				return err
			}

			st := rt.Stats()
			fmt.Printf("=== Region ===\n")
			fmt.Printf("capacity:        %s (%d bytes)\n", units.BytesSize(float64(st.MemorySize)), st.MemorySize)
			fmt.Printf("wait backend:    %s\n", st.Backend)
			fmt.Printf("arena used:      %d bytes\n", st.ArenaUsed)
			fmt.Printf("arena remaining: %d bytes\n", st.ArenaRemaining)
			fmt.Printf("\n=== TLS ===\n")
			fmt.Printf("thread slots:    %d\n", st.MaxThreads)
			fmt.Printf("keys per thread: %d\n", st.TLSKeys)
			fmt.Printf("\n=== Primitive offsets ===\n")
			fmt.Printf("mutex:   %#08x\n", mu.Offset())
			fmt.Printf("barrier: %#08x\n", bar.Offset())
			fmt.Printf("rwlock:  %#08x\n", rw.Offset())
			fmt.Printf("atomic:  %#08x\n", counter)
			return nil
		},
	}
}

func runContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Minute)
}
