// errors.go: sentinel errors for the mempipe package.

package mempipe

import "errors"

// ErrClosedPipe is returned by write operations once the read end of the
// pipe has been closed while bytes remain unwritten. Readers never see this
// error; closure manifests there as io.EOF once the buffer has drained.
var ErrClosedPipe = errors.New("mempipe: write on closed pipe")

// ErrInvalidArgument is returned synchronously, before any state is
// mutated, when a (buffer, offset, length) triple is out of range or a
// non-positive capacity is given to New.
var ErrInvalidArgument = errors.New("mempipe: invalid argument")
