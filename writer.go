// writer.go: the write endpoint of a pipe.

package mempipe

import "io"

// Writer is the write half of a pipe. It is not safe to call its methods
// concurrently with each other; it is safe to call them concurrently with
// the paired Reader's methods.
type Writer struct {
	p *Pipe
}

// Write writes all of data into the pipe, suspending as needed, and
// returns only once every byte has been enqueued or the pipe closes. A
// partial bulk write is not possible: either all of data is accepted or an
// error is returned along with however many bytes were accepted first. A
// zero-length data returns (0, nil) immediately and never suspends.
func (w *Writer) Write(data []byte) (int, error) {
	return w.p.writeRange(data, 0, len(data))
}

// WriteRange writes exactly length bytes from src[off:off+length],
// following the same blocking rules as Write. It fails with
// ErrInvalidArgument, before touching any state, if off/length describe a
// range outside src.
func (w *Writer) WriteRange(src []byte, off, length int) (int, error) {
	return w.p.writeRange(src, off, length)
}

// WriteByte writes a single byte, suspending as Write would.
func (w *Writer) WriteByte(b byte) error {
	_, err := w.p.writeRange([]byte{b}, 0, 1)
	return err
}

// ReadFrom implements io.ReaderFrom by reading all of src into the pipe
// until EOF, writing directly into the ring buffer without an
// intermediate copy.
func (w *Writer) ReadFrom(src io.Reader) (int64, error) {
	p := w.p
	var total int64
	for {
		wp, r, closed := p.waitForWritable()
		if closed {
			return total, ErrClosedPipe
		}
		limit := (wp & p.mask) + (p.capacity - (wp - r))
		if limit > p.capacity {
			limit = p.capacity
		}

		n, err := src.Read(p.buffer[wp&p.mask : limit])
		total += int64(n)
		if n > 0 {
			p.writePos.Store(wp + uint64(n))
			p.park.signalProgress()
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Close closes the writer. Subsequent reads from the paired Reader return
// any remaining buffered bytes, then io.EOF. Close is idempotent.
func (w *Writer) Close() error {
	w.p.park.signalClose()
	return nil
}

// writeRange is the shared implementation behind Write and WriteRange.
func (p *Pipe) writeRange(src []byte, off, length int) (int, error) {
	if off < 0 || length < 0 || off+length > len(src) {
		return 0, ErrInvalidArgument
	}
	if length == 0 {
		return 0, nil
	}

	remaining := src[off : off+length]
	written := 0
	for len(remaining) > 0 {
		w, r, closed := p.waitForWritable()
		if closed {
			return written, ErrClosedPipe
		}

		free := p.capacity - (w - r)
		n := free
		if n > uint64(len(remaining)) {
			n = uint64(len(remaining))
		}
		p.copyIn(w, remaining[:n])
		p.writePos.Store(w + n)
		p.park.signalProgress()

		remaining = remaining[n:]
		written += int(n)
	}
	return written, nil
}
