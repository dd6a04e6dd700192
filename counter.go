// counter.go: cache-line padded monotonic cursors.

package mempipe

import "go.uber.org/atomic"

// cacheLineSize is the assumed false-sharing boundary on the target
// platforms this package cares about (x86-64 and arm64 both use 64 bytes).
const cacheLineSize = 64

// paddedCounter is a 64-bit monotonic cursor padded on both sides out to a
// full cache line. The pipe keeps two of these as adjacent Pipe fields
// (write position and read position); without the padding, every writer
// publish would bounce the reader's cache line (and vice versa) even
// though the two counters are touched by different goroutines and never
// alias logically. The leading pad matters as much as the trailing one:
// without it, the struct field immediately preceding a paddedCounter
// (buffer/capacity/mask, or the other counter) could still share its line.
// This is a quality-of-implementation concern, not a correctness one.
type paddedCounter struct {
	_ [cacheLineSize]byte
	v atomic.Uint64
	_ [cacheLineSize - 8]byte
}

func (c *paddedCounter) Load() uint64     { return c.v.Load() }
func (c *paddedCounter) Store(val uint64) { c.v.Store(val) }
