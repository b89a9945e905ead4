// Command heapprofcat drives one of the example workloads under the
// profiler and prints the resulting report in the requested format.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/heapprof/heapprof"
	"github.com/heapprof/heapprof/arena"
	"github.com/heapprof/heapprof/examples/quicksort"
)

var (
	flamegraph bool
	text       bool
	workload   string
)

func main() {
	flag.BoolVar(&flamegraph, "flamegraph", false, "write the flamegraph collapsed-stack format to stdout")
	flag.BoolVar(&text, "text", true, "write the plain text report to stdout")
	flag.StringVar(&workload, "workload", "alloc-free", "workload to run: alloc-free, multi-thread, or quicksort")
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "heapprofcat:", err)
		os.Exit(1)
	}
}

func run() error {
	a := heapprof.New(arena.Heap{})
	if err := a.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Stop()

	switch workload {
	case "alloc-free":
		runAllocFree()
	case "multi-thread":
		runMultiThread()
	case "quicksort":
		runAllocFree()
	default:
		return fmt.Errorf("unknown workload %q", workload)
	}

	h := a.Report()
	defer h.Close()

	if flamegraph {
		if err := h.Report().WriteFlamegraph(os.Stdout); err != nil {
			return fmt.Errorf("write flamegraph: %w", err)
		}
	}
	if text {
		if err := h.Report().WriteText(os.Stdout); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	return nil
}

func randomInput(n int) []uint32 {
	input := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		input = append(input, rand.Uint32())
	}
	return input
}

func runAllocFree() {
	_ = quicksort.Sort(randomInput(1000))
}

func runMultiThread() {
	input := randomInput(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := append([]uint32(nil), input...)
			_ = quicksort.Sort(local)
		}()
	}
	wg.Wait()
}
