// copy.go: extension helper built on top of the pipe.

package mempipe

import "io"

// Copy copies from src to dst through an intermediate pipe of the given
// capacity, until either EOF is reached on src or an error occurs. It
// returns the number of bytes copied and the first error encountered, if
// any.
//
// A successful Copy returns err == nil, not err == io.EOF. Because Copy
// reads from src until EOF, it does not treat an EOF from Read as an error
// to report.
//
// Internally, one goroutine reads src into the pipe's write end while the
// calling goroutine drains the read end into dst, so the two sides run
// concurrently instead of one blocking the other beyond the pipe's
// capacity.
func Copy(dst io.Writer, src io.Reader, capacity int) (written int64, err error) {
	r, w, err := New(capacity)
	if err != nil {
		return 0, err
	}

	errc := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, src)
		w.Close()
		errc <- err
	}()

	written, errOut := io.Copy(dst, r)
	r.Close()
	errIn := <-errc

	if errOut != nil {
		return written, errOut
	}
	return written, errIn
}
