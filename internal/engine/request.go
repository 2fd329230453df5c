package engine

import (
	"context"
	"errors"
)

var (
	ErrWorkerLimit = errors.New("worker limit reached")
	ErrWorkerPanic = errors.New("worker panicked")
)

// Request describes one run. Start takes a private copy of Stages, later
// changes of the caller's slices do not affect a submitted request.
type Request struct {
	// ID is the caller's correlation token, never interpreted.
	ID string
	// UseShell runs each stage as a line of the platform shell, otherwise the
	// first token of a stage is the executable and the rest literal arguments.
	UseShell bool
	// Blocking runs on the caller's goroutine, otherwise on a dedicated worker.
	Blocking bool
	Stages   [][]string
	Observer Observer
}

func (r Request) clone() Request {
	stages := make([][]string, len(r.Stages))
	for i, s := range r.Stages {
		stages[i] = append([]string(nil), s...)
	}
	if r.Stages == nil {
		stages = nil
	}
	r.Stages = stages
	return r
}

// Result of a run. Pending is set only by a non-blocking Start.
type Result struct {
	Pending *Pending
	// ExitRequested mirrors the last control decision other than ControlNone,
	// it stays true once the read loop was stopped by the Observer.
	ExitRequested *bool
	// Err is nil on success. It holds the start, I/O or kill error of the run.
	Err     error
	Payload Payload
}

// Pending is the handle of a run executing on a worker.
type Pending struct {
	done   chan struct{}
	result Result
	err    error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(result Result, err error) {
	p.result = result
	p.err = err
	close(p.done)
}

// Done is closed when the worker finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the worker finished and returns its Result. The error is
// not about the run itself (see Result.Err) but about the worker, for example
// ErrWorkerPanic.
func (p *Pending) Wait() (Result, error) {
	<-p.done
	return p.result, p.err
}

// WaitContext is Wait which gives up when ctx is done. The run keeps going.
func (p *Pending) WaitContext(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
