// Package frameloop implements the cooperative single-goroutine scheduler
// the viewport runs on.
//
// A Loop delivers two kinds of callbacks, both on whichever goroutine calls
// Tick: frame callbacks requested with RequestFrame, and completions posted
// from other goroutines with Dispatch. Callbacks never overlap, so state
// touched only from them needs no locking.
package frameloop

import (
	"sync"
	"time"
)

// FrameID identifies a requested frame callback.
type FrameID uint64

// FrameFunc is called once for the frame it was requested for.
type FrameFunc func(now time.Time)

type frameRequest struct {
	id FrameID
	fn FrameFunc
}

// Loop is a frame scheduler with a thread-safe completion queue.
type Loop struct {
	mu      sync.Mutex
	nextID  FrameID
	frames  []frameRequest
	running map[FrameID]bool
	inbox   []func()
	wake    chan struct{}
	ticks   uint64
	inTick  bool
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// RequestFrame schedules fn for the next Tick. A callback requested while a
// tick is running waits for the following tick.
func (l *Loop) RequestFrame(fn FrameFunc) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.frames = append(l.frames, frameRequest{id: l.nextID, fn: fn})
	return l.nextID
}

// CancelFrame removes a pending frame callback. Unknown ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, req := range l.frames {
		if req.id == id {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
	delete(l.running, id)
}

// Dispatch queues fn to run at the start of the next Tick. It is safe to
// call from any goroutine.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled after Dispatch queues work, so an idle host can block
// on it instead of spinning.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Tick runs every dispatched completion, then every frame callback that was
// pending when the tick started. It returns the number of frame callbacks run.
func (l *Loop) Tick(now time.Time) int {
	l.mu.Lock()
	if l.inTick {
		l.mu.Unlock()
		panic("frameloop: Tick called re-entrantly")
	}
	l.inTick = true
	inbox := l.inbox
	l.inbox = nil
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.inTick = false
		l.running = nil
		l.ticks++
		l.mu.Unlock()
	}()

	for _, fn := range inbox {
		fn()
	}

	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.running = make(map[FrameID]bool, len(frames))
	for _, req := range frames {
		l.running[req.id] = true
	}
	l.mu.Unlock()

	ran := 0
	for _, req := range frames {
		if !l.take(req.id) {
			continue
		}
		req.fn(now)
		ran++
	}
	return ran
}

// take claims a frame for this tick unless an earlier callback in the same
// tick cancelled it.
func (l *Loop) take(id FrameID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running[id] {
		return false
	}
	delete(l.running, id)
	return true
}

// PendingFrames returns the number of frame callbacks waiting for a tick.
func (l *Loop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// PendingDispatches returns the number of queued completions.
func (l *Loop) PendingDispatches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inbox)
}

// Ticks returns how many ticks have completed.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}
