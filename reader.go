// reader.go: the read endpoint of a pipe.

package mempipe

import "io"

// Reader is the read half of a pipe. It is not safe to call its methods
// concurrently with each other; it is safe to call them concurrently with
// the paired Writer's methods.
type Reader struct {
	p *Pipe
}

// Read reads up to len(dst) bytes into dst. If at least one byte is
// currently available it copies up to len(dst) of them and returns
// immediately without waiting for more. If none are available and the
// pipe is not closed, it suspends until the writer writes or closes. If
// none are available and the pipe is closed, it returns io.EOF. A
// zero-length dst returns (0, nil) immediately and never suspends.
func (r *Reader) Read(dst []byte) (int, error) {
	return r.p.readRange(dst, 0, len(dst))
}

// ReadRange reads up to length bytes into dst[off:off+length], following
// the same blocking and EOF rules as Read. It fails with
// ErrInvalidArgument, before touching any state, if off/length describe a
// range outside dst.
func (r *Reader) ReadRange(dst []byte, off, length int) (int, error) {
	return r.p.readRange(dst, off, length)
}

// ReadByte reads a single byte, suspending as Read would. It returns
// io.EOF once the pipe is closed and drained.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	n, err := r.p.readRange(b[:], 0, 1)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return b[0], nil
}

// Skip advances the read cursor by up to n bytes without copying them,
// following the same blocking and EOF rules as Read. A negative n is
// coerced to 0.
func (r *Reader) Skip(n int) (int, error) {
	return r.p.skip(n)
}

// Available returns a non-blocking lower bound on the number of bytes
// currently readable without suspension.
func (r *Reader) Available() uint64 {
	return r.p.available()
}

// WriteTo implements io.WriterTo by draining the pipe into dst until EOF,
// writing directly out of the ring buffer without an intermediate copy.
func (r *Reader) WriteTo(dst io.Writer) (int64, error) {
	p := r.p
	var total int64
	for {
		w, rp, eof := p.waitForReadable()
		if eof {
			return total, nil
		}
		limit := (rp & p.mask) + (w - rp)
		if limit > p.capacity {
			limit = p.capacity
		}
		chunk := p.buffer[rp&p.mask : limit]

		n, err := dst.Write(chunk)
		total += int64(n)
		if n > 0 {
			p.readPos.Store(rp + uint64(n))
			p.park.signalProgress()
		}
		if err != nil {
			return total, err
		}
		if n != len(chunk) {
			return total, io.ErrShortWrite
		}
	}
}

// Close closes the reader. Subsequent writes to the paired Writer fail
// with ErrClosedPipe. Close is idempotent.
func (r *Reader) Close() error {
	r.p.park.signalClose()
	return nil
}

// readRange is the shared implementation behind Read and ReadRange.
func (p *Pipe) readRange(dst []byte, off, length int) (int, error) {
	if off < 0 || length < 0 || off+length > len(dst) {
		return 0, ErrInvalidArgument
	}
	if length == 0 {
		return 0, nil
	}

	w, r, eof := p.waitForReadable()
	if eof {
		return 0, io.EOF
	}

	avail := w - r
	n := avail
	if n > uint64(length) {
		n = uint64(length)
	}
	p.copyOut(r, dst[off:off+int(n)])
	p.readPos.Store(r + n)
	p.park.signalProgress()
	return int(n), nil
}

// skip is the shared implementation behind Skip.
func (p *Pipe) skip(n int) (int, error) {
	if n < 0 {
		n = 0
	}
	if n == 0 {
		return 0, nil
	}

	w, r, eof := p.waitForReadable()
	if eof {
		return 0, io.EOF
	}

	avail := w - r
	k := avail
	if k > uint64(n) {
		k = uint64(n)
	}
	// Per the design's open question, R is advanced here with the same
	// atomic store used elsewhere (no weaker, relaxed store is used), and
	// no extra ordering is needed because R is otherwise touched
	// exclusively by the reader itself.
	p.readPos.Store(r + k)
	p.park.signalProgress()
	return int(k), nil
}
