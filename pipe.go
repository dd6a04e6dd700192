// Package mempipe provides an in-memory, single-producer/single-consumer
// byte pipe: a bounded ring buffer connecting one write endpoint to one
// read endpoint within the same process, with the same blocking semantics
// as an operating-system pipe but without kernel involvement and without
// holding any lock while a goroutine is suspended.
//
// # Quick start
//
//	r, w, err := mempipe.New(4096)
//	if err != nil {
//		log.Fatal(err)
//	}
//	go func() {
//		w.Write([]byte("hello"))
//		w.Close()
//	}()
//	data, err := io.ReadAll(r) // "hello", nil once w is closed and drained
//
// # Design
//
// The pipe is not multi-producer or multi-consumer, not persistent, and
// not re-openable — violating the single-writer/single-reader contract is
// undefined behavior, the same way it would be for a raw ring buffer. Two
// monotonic 64-bit cursors (write position and read position) are mapped
// to buffer offsets by bitmask, so capacity is always rounded up to the
// next power of two. Suspension happens only inside the shared park slot
// (see parkslot.go), which guarantees at most one parked goroutine at a
// time and never holds a lock across a suspension.
package mempipe

import "math/bits"

// Pipe is the state shared by a Reader and a Writer. It is never
// constructed directly by callers; use New.
type Pipe struct {
	buffer   []byte
	capacity uint64
	mask     uint64

	writePos paddedCounter // mutated only by the Writer
	readPos  paddedCounter // mutated only by the Reader

	park parkSlot
}

// New creates an in-memory pipe with the given nominal capacity, silently
// rounded up to the next power of two, and returns its read and write
// endpoints. It fails with ErrInvalidArgument if capacity is not positive.
func New(capacity int) (*Reader, *Writer, error) {
	if capacity <= 0 {
		return nil, nil, ErrInvalidArgument
	}

	rounded := nextPow2(capacity)
	p := &Pipe{
		buffer:   make([]byte, rounded),
		capacity: uint64(rounded),
		mask:     uint64(rounded - 1),
	}
	return &Reader{p: p}, &Writer{p: p}, nil
}

// nextPow2 returns the smallest power of two >= n, for n >= 1.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// available returns a relaxed snapshot of W-R: a lower bound on the bytes
// currently readable without suspension.
func (p *Pipe) available() uint64 {
	return p.writePos.Load() - p.readPos.Load()
}

// copyIn copies src into the ring starting at logical position w, wrapping
// across the end of the buffer as at most two bulk sub-copies.
func (p *Pipe) copyIn(w uint64, src []byte) {
	start := w & p.mask
	n := copy(p.buffer[start:], src)
	if n < len(src) {
		copy(p.buffer, src[n:])
	}
}

// copyOut copies from the ring starting at logical position r into dst,
// wrapping across the end of the buffer as at most two bulk sub-copies.
func (p *Pipe) copyOut(r uint64, dst []byte) {
	start := r & p.mask
	n := copy(dst, p.buffer[start:])
	if n < len(dst) {
		copy(dst[n:], p.buffer)
	}
}

// waitForReadable blocks until at least one byte is available or the pipe
// is closed and fully drained, then returns the W/R snapshot that proved
// it. Any bytes committed by the writer before it observed the pipe as
// closed are always visible here before eof is reported, satisfying the
// close-flushes-tail requirement.
func (p *Pipe) waitForReadable() (w, r uint64, eof bool) {
	ready := func() bool {
		w = p.writePos.Load()
		r = p.readPos.Load()
		return w-r > 0
	}
	sawClosed := false
	for {
		if ready() {
			return w, r, false
		}
		if sawClosed {
			return w, r, true
		}
		if p.park.parkOrDetectClose(ready) == retryClosed {
			sawClosed = true
		}
	}
}

// waitForWritable blocks until some free space exists or the pipe is
// closed. Unlike waitForReadable, a close is reported immediately even if
// free space exists: once the read end is gone, nothing will ever drain
// those bytes, so there is no tail to flush on the write side.
func (p *Pipe) waitForWritable() (w, r uint64, closed bool) {
	ready := func() bool {
		w = p.writePos.Load()
		r = p.readPos.Load()
		return p.capacity-(w-r) > 0
	}
	for {
		if p.park.isClosed() {
			return 0, 0, true
		}
		if ready() {
			return w, r, false
		}
		if p.park.parkOrDetectClose(ready) == retryClosed {
			return w, r, true
		}
	}
}
