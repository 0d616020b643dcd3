package viewport

import (
	"errors"
	"fmt"
)

// ErrClosed matches any LifecycleError raised on a closed session.
var ErrClosed = errors.New("viewport: session closed")

// State is a session lifecycle state.
type State uint8

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// LifecycleError reports an operation invoked in the wrong session state.
// It indicates a usage bug and is never retried.
type LifecycleError struct {
	Op    string
	State State
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("viewport: %s on %s session", e.Op, e.State)
}

// Is lets errors.Is(err, ErrClosed) match errors raised after Close.
func (e *LifecycleError) Is(target error) bool {
	return target == ErrClosed && e.State == StateClosed
}

// ImportError reports a source that could not be parsed. The previously
// displayed model is kept.
type ImportError struct {
	Name string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Name, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
