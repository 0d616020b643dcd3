package viewport

import (
	"context"
	"sync"

	"github.com/Faultbox/meshview/internal/engine/camera"
)

// Outcome is how a load request ended.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	// OutcomeLoaded means the model was attached and framed.
	OutcomeLoaded
	// OutcomeFailed means the import failed while the request was current.
	OutcomeFailed
	// OutcomeSuperseded means a newer load or Close made the result
	// irrelevant. It is neither a success nor an error.
	OutcomeSuperseded
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Load is the future returned by Session.LoadModel.
type Load struct {
	Generation uint64
	Name       string

	once    sync.Once
	done    chan struct{}
	outcome Outcome
	err     error
	framing camera.Framing
}

func newLoad(gen uint64, name string) *Load {
	return &Load{Generation: gen, Name: name, done: make(chan struct{})}
}

// resolve settles the future. Only the first call has any effect.
func (l *Load) resolve(outcome Outcome, err error, framing camera.Framing) bool {
	resolved := false
	l.once.Do(func() {
		l.outcome = outcome
		l.err = err
		l.framing = framing
		close(l.done)
		resolved = true
	})
	return resolved
}

// Done is closed when the load has resolved.
func (l *Load) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the load resolves or ctx ends. The session only makes
// progress while its host is ticking, so do not Wait on the host goroutine.
func (l *Load) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-l.done:
		return l.outcome, l.err
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Result returns the outcome and error, or OutcomePending if unresolved.
func (l *Load) Result() (Outcome, error) {
	select {
	case <-l.done:
		return l.outcome, l.err
	default:
		return OutcomePending, nil
	}
}

// Framing returns the camera framing applied for a loaded model.
func (l *Load) Framing() camera.Framing {
	select {
	case <-l.done:
		return l.framing
	default:
		return camera.Framing{}
	}
}
