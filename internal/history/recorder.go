package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/procstream/internal/engine"
)

// Recorder is an engine.Observer storing every event of one run before it
// passes the event to the next Observer. Storage errors are logged and never
// affect the run.
type Recorder struct {
	ctx       context.Context
	store     *Store
	requestID string
	stages    [][]string
	next      engine.Observer

	run    Run
	seq    int
	failed bool
}

// Recorder returns an Observer for a single request, next may be nil.
func (s *Store) Recorder(ctx context.Context, req engine.Request, next engine.Observer) *Recorder {
	return &Recorder{
		ctx:       ctx,
		store:     s,
		requestID: req.ID,
		stages:    clone(req.Stages),
		next:      next,
	}
}

// RunID is the id of the stored run, zero before the first event.
func (r *Recorder) RunID() int64 {
	return r.run.ID
}

func (r *Recorder) Observe(ev engine.Event, obs *engine.Observation) engine.Reply {
	r.record(ev, obs)

	var reply engine.Reply
	if r.next != nil {
		reply = r.next.Observe(ev, obs)
	}
	switch ev {
	case engine.ExitRequested:
		r.run.ExitRequested = true
	case engine.StartError, engine.IOError, engine.KillError:
		r.run.Err = obs.Line
	}

	if ev.Terminal() {
		r.finish(ev, obs)
	}
	return reply
}

func (r *Recorder) record(ev engine.Event, obs *engine.Observation) {
	if r.failed {
		return
	}
	now := time.Now()
	if r.run.ID == 0 {
		id, err := r.store.createRun(r.ctx, r.requestID, r.stages, now)
		if err != nil {
			r.fail("storing run", err)
			return
		}
		r.run.ID = id
	}
	r.seq++
	err := r.store.addEvent(r.ctx, Event{
		RunID:      r.run.ID,
		Seq:        r.seq,
		Kind:       ev.String(),
		LineNumber: obs.LineNumber,
		Line:       obs.Line,
		At:         now,
	})
	if err != nil {
		r.fail("storing event", err)
	}
}

func (r *Recorder) finish(ev engine.Event, obs *engine.Observation) {
	if r.failed || r.run.ID == 0 {
		return
	}
	now := time.Now().UTC()
	r.run.StoppedAt = &now
	r.run.LastEvent = ev.String()
	r.run.Lines = obs.LineNumber
	if err := r.store.finishRun(r.ctx, r.run); err != nil {
		r.fail("storing run result", err)
	}
}

func (r *Recorder) fail(msg string, err error) {
	r.failed = true
	slog.ErrorContext(r.ctx, msg+": history disabled for the run", "request_id", r.requestID, "error", err)
}

func clone(stages [][]string) [][]string {
	ret := make([][]string, 0, len(stages))
	for _, s := range stages {
		ret = append(ret, append([]string{}, s...))
	}
	return ret
}
