package mempipe

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestCapacityRounding covers property 9: effective capacity is always the
// smallest power of two >= the requested capacity.
func TestCapacityRounding(t *testing.T) {
	cases := []struct{ requested, want int }{
		{1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {1000, 1024}, {1024, 1024}, {1025, 2048},
	}
	for _, c := range cases {
		r, w, err := New(c.requested)
		require.NoError(t, err)
		require.Equal(t, uint64(c.want), r.p.capacity)
		_ = w
	}
}

// TestConstructorRejectsNonPositiveCapacity covers the lifecycle rule that
// New must fail, not panic, on a non-positive capacity.
func TestConstructorRejectsNonPositiveCapacity(t *testing.T) {
	for _, c := range []int{0, -1, -100} {
		_, _, err := New(c)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

// TestInvalidArgumentRejection covers property 10: out-of-range
// (buffer, offset, length) triples are rejected without mutating state.
func TestInvalidArgumentRejection(t *testing.T) {
	r, w, err := New(16)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = w.WriteRange(buf, -1, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = w.WriteRange(buf, 2, 10)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.EqualValues(t, 0, r.Available())

	_, err = r.ReadRange(buf, -1, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.ReadRange(buf, 3, 3)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// TestZeroLengthNoOp covers property 8: zero-length requests return
// immediately and never suspend, even on an empty pipe where a non-empty
// read would block.
func TestZeroLengthNoOp(t *testing.T) {
	r, w, err := New(4)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := w.Write(nil)
		require.NoError(t, err)
		require.Zero(t, n)

		n, err = r.Read(nil)
		require.NoError(t, err)
		require.Zero(t, n)

		n, err = r.Skip(0)
		require.NoError(t, err)
		require.Zero(t, n)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero-length operation blocked")
	}
}

// TestIdempotentClose covers property 7: closing either endpoint twice is
// a no-op, on both endpoints independently.
func TestIdempotentClose(t *testing.T) {
	r, w, err := New(8)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

// TestLosslessOrderedStream covers properties 1 and 2: every byte written
// arrives, in order, before EOF.
func TestLosslessOrderedStream(t *testing.T) {
	for _, capacity := range []int{1, 2, 4, 8, 64, 8192} {
		capacity := capacity
		t.Run("", func(t *testing.T) {
			source := randomBytes(257 * capacity)

			r, w, err := New(capacity)
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := w.Write(source)
				require.NoError(t, err)
				require.Equal(t, len(source), n)
				require.NoError(t, w.Close())
			}()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			wg.Wait()

			require.Equal(t, source, got)
		})
	}
}

// TestBoundedOccupancy covers property 3: 0 <= W-R <= capacity holds at
// every instant a concurrent stress run samples it.
func TestBoundedOccupancy(t *testing.T) {
	const capacity = 64
	r, w, err := New(capacity)
	require.NoError(t, err)

	source := randomBytes(200 * capacity)

	violations := make(chan string, 1)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			avail := r.Available()
			if avail > uint64(capacity) {
				select {
				case violations <- "occupancy exceeded capacity":
				default:
				}
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(1))
		rest := source
		for len(rest) > 0 {
			chunk := 1 + rng.Intn(2*capacity)
			if chunk > len(rest) {
				chunk = len(rest)
			}
			n, err := w.Write(rest[:chunk])
			require.NoError(t, err)
			rest = rest[n:]
		}
		require.NoError(t, w.Close())
	}()
	go func() {
		defer wg.Done()
		io.ReadAll(r)
	}()
	wg.Wait()
	close(stop)

	select {
	case msg := <-violations:
		t.Fatal(msg)
	default:
	}
}

// TestBackpressure covers property 4: a writer submitting more than
// capacity bytes with no concurrent reader suspends before exceeding it,
// then resumes and completes once the reader drains it.
func TestBackpressure(t *testing.T) {
	const capacity = 16
	r, w, err := New(capacity)
	require.NoError(t, err)

	payload := randomBytes(capacity + 8)
	blocked := make(chan struct{})
	go func() {
		n, err := w.Write(payload)
		require.NoError(t, err)
		require.Equal(t, len(payload), n)
		require.NoError(t, w.Close())
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("writer did not suspend despite exceeding capacity")
	case <-time.After(50 * time.Millisecond):
	}
	require.EqualValues(t, capacity, r.Available())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("writer never resumed after space freed")
	}
}

// TestNoLostWakeup covers property 5: a writer and reader that alternate
// parking on a tiny pipe always complete, for every schedule the Go
// scheduler happens to choose.
func TestNoLostWakeup(t *testing.T) {
	const capacity = 1
	const total = 2000

	r, w, err := New(capacity)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			_, err := w.Write([]byte{byte(i)})
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
	}()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, got, total)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writer goroutine never finished: lost wakeup")
	}
}

// TestCloseFlushesTail covers property 6: a writer that writes K bytes
// then closes always has those K bytes delivered before EOF, for every K
// and capacity.
func TestCloseFlushesTail(t *testing.T) {
	for _, capacity := range []int{1, 2, 4, 8, 64} {
		for _, k := range []int{0, 1, capacity, capacity * 3, capacity*3 + 1} {
			capacity, k := capacity, k
			t.Run("", func(t *testing.T) {
				data := randomBytes(k)

				r, w, err := New(capacity)
				require.NoError(t, err)

				go func() {
					_, err := w.Write(data)
					require.NoError(t, err)
					require.NoError(t, w.Close())
				}()

				got, err := io.ReadAll(r)
				require.NoError(t, err)
				require.Equal(t, data, got)
			})
		}
	}
}

// TestWriteAfterReaderCloseFails ensures a writer sees ErrClosedPipe once
// the read end is gone, even mid-stream with bytes remaining unwritten.
func TestWriteAfterReaderCloseFails(t *testing.T) {
	r, w, err := New(4)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = w.Write([]byte{1, 2, 3, 4, 5})
	require.True(t, errors.Is(err, ErrClosedPipe))
}

// TestReadAfterWriterCloseDrainsThenEOF exercises the non-blocking path:
// data already sitting in the buffer is delivered before EOF even though
// the writer closed immediately.
func TestReadAfterWriterCloseDrainsThenEOF(t *testing.T) {
	r, w, err := New(16)
	require.NoError(t, err)

	n, err := w.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, w.Close())

	buf := make([]byte, 16)
	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])

	_, err = r.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

// TestReadByteAndSkip exercises the single-byte and skip surfaces against
// a small known stream.
func TestReadByteAndSkip(t *testing.T) {
	r, w, err := New(8)
	require.NoError(t, err)

	_, err = w.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(1), b)

	n, err := r.Skip(2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	b, err = r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(4), b)

	n, err = r.Skip(10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = r.ReadByte()
	require.ErrorIs(t, err, io.EOF)
}

// TestSkipNegativeCoercedToZero checks the documented n < 0 -> 0 coercion.
func TestSkipNegativeCoercedToZero(t *testing.T) {
	r, w, err := New(4)
	require.NoError(t, err)
	_, err = w.Write([]byte{9})
	require.NoError(t, err)

	n, err := r.Skip(-5)
	require.NoError(t, err)
	require.Zero(t, n)
	require.EqualValues(t, 1, r.Available())
}
