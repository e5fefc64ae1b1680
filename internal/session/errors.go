package session

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalized is returned for mutations after submission.
	ErrFinalized = errors.New("session already submitted")

	// ErrAbandoned is returned for any use after Abandon.
	ErrAbandoned = errors.New("session abandoned")
)

// ErrIndexOutOfRange is returned when Advance is called with a position
// outside the live sequence.
type ErrIndexOutOfRange struct {
	Index  int
	Length int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("question index %d out of range [0, %d)", e.Index, e.Length)
}
