// Command pipebench measures allocation and throughput behavior of
// multiple independent pipes run concurrently, the same memstats-diffing
// technique as the allocation repro this package is descended from.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/karalabe/mempipe"
)

var (
	fanout     = flag.Int("fanout", 8, "number of independent pipes to run concurrently")
	capacity   = flag.Int("capacity", 1024*1024, "capacity of each pipe, in bytes")
	payloadLen = flag.Int("payload", 256*1024*1024, "total bytes pushed through each pipe")
)

func main() {
	flag.Parse()

	data := randomBytes(*payloadLen)

	fmt.Println("long runs:")
	runFanout(data, *fanout, *capacity)

	fmt.Println()
	fmt.Println("short bursts:")
	burstFanout(*fanout, *capacity)
}

// runFanout drives fanout independent Copy calls concurrently, each moving
// the same data blob through its own pipe, and reports aggregate
// allocation and throughput figures.
func runFanout(data []byte, fanout, capacity int) {
	start := new(runtime.MemStats)
	runtime.ReadMemStats(start)

	var g errgroup.Group
	for i := 0; i < fanout; i++ {
		g.Go(func() error {
			_, err := mempipe.Copy(io.Discard, bytes.NewReader(data), capacity)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Println("fanout run failed:", err)
		return
	}

	end := new(runtime.MemStats)
	runtime.ReadMemStats(end)
	fmt.Printf("fanout %d, gomaxprocs %d, allocs: %d, bytes: %d\n",
		fanout, runtime.GOMAXPROCS(0), end.Mallocs-start.Mallocs, end.TotalAlloc-start.TotalAlloc)
}

// burstFanout drives fanout independent pipes, each shuttled one byte at a
// time, to surface the allocation cost of the suspend/wake path under
// maximal contention rather than bulk throughput.
func burstFanout(fanout, capacity int) {
	const iters = 256 * 1024

	start := new(runtime.MemStats)
	runtime.ReadMemStats(start)

	var g errgroup.Group
	for i := 0; i < fanout; i++ {
		g.Go(func() error {
			r, w, err := mempipe.New(capacity)
			if err != nil {
				return err
			}
			input, output := []byte{0xff}, make([]byte, 1)
			done := make(chan error, 1)
			go func() {
				for i := 0; i < iters; i++ {
					if _, err := r.Read(output); err != nil {
						done <- err
						return
					}
				}
				done <- nil
			}()
			for i := 0; i < iters; i++ {
				if _, err := w.Write(input); err != nil {
					return err
				}
			}
			if err := w.Close(); err != nil {
				return err
			}
			return <-done
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Println("fanout burst failed:", err)
		return
	}

	end := new(runtime.MemStats)
	runtime.ReadMemStats(end)
	fmt.Printf("fanout %d, gomaxprocs %d, allocs: %d, bytes: %d\n",
		fanout, runtime.GOMAXPROCS(0), end.Mallocs-start.Mallocs, end.TotalAlloc-start.TotalAlloc)
}

// randomBytes generates a deterministic pseudo-random binary blob.
func randomBytes(length int) []byte {
	src := rand.NewSource(0)

	data := make([]byte, length)
	for i := 0; i < length; i++ {
		data[i] = byte(src.Int63() & 0xff)
	}
	return data
}
