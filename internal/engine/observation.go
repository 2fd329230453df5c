package engine

import "errors"

var ErrReaderReleased = errors.New("reader released: the run is not reading anymore")

type handle interface {
	Kill() error
	PIDs() []int
}

// Observation is the payload passed to the Observer. It is reused for every
// event of one run and must not be retained after the Observer returns.
type Observation struct {
	RequestID string
	// LineNumber counts IOData events delivered so far.
	LineNumber int
	// Line is the output line for IOData, a diagnostic message for other
	// events or empty.
	Line string

	reader        handle
	killRequested bool
	killErr       error
}

// Kill terminates every stage of the running chain. It is valid between
// Started and the end of the read loop, otherwise it returns ErrReaderReleased.
// The run emits KillRequested once the current Observer call returns, one per
// Observer call which invoked Kill. Only the first call signals the chain,
// later ones return its result. Calls made while handling KillRequested
// emit nothing.
func (o *Observation) Kill() error {
	if o.reader == nil {
		return ErrReaderReleased
	}
	o.killErr = o.reader.Kill()
	o.killRequested = true
	return o.killErr
}

// PIDs returns process ids of the stages still running, nil once released.
func (o *Observation) PIDs() []int {
	if o.reader == nil {
		return nil
	}
	return o.reader.PIDs()
}

// Live reports whether Kill and PIDs operate on a running chain.
func (o *Observation) Live() bool {
	return o.reader != nil
}
