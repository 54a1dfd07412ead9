package capability

import (
	"errors"
	"fmt"
)

var (
	ErrNoCandidatesFound   = errors.New("no send-capable method found on client")
	ErrAllCandidatesFailed = errors.New("all candidates failed")
	ErrNoCompatibleShape   = errors.New("no compatible calling convention")
	ErrMaterialize         = errors.New("conversation could not be opened")
	ErrCalleePanic         = errors.New("callee panicked")
)

// CallError is an error raised by a callable that accepted its arguments.
type CallError struct {
	Path  string
	Shape Shape
	Err   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Path, e.Shape, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// SendError reports that no candidate succeeded. It matches
// ErrAllCandidatesFailed and unwraps to the last underlying error.
type SendError struct {
	Tried int
	Last  error
}

func (e *SendError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%v: tried %d candidates", ErrAllCandidatesFailed, e.Tried)
	}
	return fmt.Sprintf("%v: tried %d candidates; last error: %v", ErrAllCandidatesFailed, e.Tried, e.Last)
}

func (e *SendError) Is(target error) bool { return target == ErrAllCandidatesFailed }

func (e *SendError) Unwrap() error { return e.Last }
