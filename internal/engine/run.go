package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CZERTAINLY/procstream/internal/pipeline"
)

// run is the state of one execution, owned by the goroutine executing it.
type run struct {
	ctx     context.Context
	logger  *slog.Logger
	req     Request
	obs     Observation
	result  Result
	open    opener
	reader  lineReader
	stop    func() bool
	stopped bool
}

// lineReader is an opened chain, *pipeline.Reader unless replaced in tests.
type lineReader interface {
	handle
	ReadLine() (int, string, error)
	Close() error
}

type opener func(pipeline.Chain) (lineReader, error)

func openPipeline(chain pipeline.Chain) (lineReader, error) {
	r, err := pipeline.Open(chain)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newRun(ctx context.Context, logger *slog.Logger, open opener, req Request) *run {
	return &run{
		ctx:    ctx,
		logger: logger,
		req:    req,
		obs:    Observation{RequestID: req.ID},
		open:   open,
	}
}

// execute drives the whole state machine and returns the finished result.
func (r *run) execute(startingLine string) Result {
	defer r.release()

	chain, err := pipeline.Build(r.req.Stages, r.req.UseShell)
	if err != nil {
		r.startError(err)
		return r.result
	}

	r.obs.Line = startingLine
	r.emit(Starting)

	reader, err := r.open(chain)
	if err != nil {
		r.startError(err)
		return r.result
	}
	r.reader = reader
	r.obs.reader = reader
	r.stop = context.AfterFunc(r.ctx, func() {
		r.logger.DebugContext(r.ctx, "context done: killing pipeline")
		_ = reader.Kill()
	})

	r.obs.Line = ""
	r.emit(Started)
	r.readLoop()
	r.teardown()
	return r.result
}

func (r *run) startError(err error) {
	r.logger.WarnContext(r.ctx, "run can't be started", "error", err)
	r.result.Err = err
	r.obs.Line = err.Error()
	r.emit(StartError)
}

func (r *run) readLoop() {
	for {
		r.obs.Line = ""
		n, line, err := r.reader.ReadLine()
		switch {
		case err != nil:
			r.result.Err = fmt.Errorf("reading output: %w", err)
			r.obs.Line = err.Error()
			r.emit(IOError)
			return
		case n == 0:
			r.emit(IOEof)
			return
		}

		r.obs.LineNumber++
		r.obs.Line = line
		reply := r.emit(IOData)
		if reply.Control == ControlStop {
			r.stopped = true
			r.setExitRequested(true)
			r.obs.Line = ""
			r.emit(ExitRequested)
			return
		}
	}
}

// teardown kills and reaps the chain unconditionally.
func (r *run) teardown() {
	r.stop()
	err := r.reader.Kill()
	r.release()
	r.obs.Line = ""
	if err != nil {
		if r.result.Err == nil {
			r.result.Err = fmt.Errorf("killing pipeline: %w", err)
		}
		r.obs.Line = err.Error()
		r.emit(KillError)
		return
	}
	r.emit(Exited)
}

// release invalidates the Observation and closes the reader. It makes sure
// the chain is gone even when the Observer panics.
func (r *run) release() {
	r.obs.reader = nil
	if r.reader == nil {
		return
	}
	r.stop()
	_ = r.reader.Kill()
	if err := r.reader.Close(); err != nil {
		r.logger.DebugContext(r.ctx, "closing reader", "error", err)
	}
	r.reader = nil
}

func (r *run) emit(ev Event) Reply {
	r.logger.DebugContext(r.ctx, "event", "event", ev.String(), "line_number", r.obs.LineNumber)
	if r.req.Observer == nil {
		return Reply{}
	}
	reply := r.req.Observer.Observe(ev, &r.obs)
	r.apply(reply)

	if r.obs.killRequested {
		r.obs.killRequested = false
		line := r.obs.Line
		r.obs.Line = errString(r.obs.killErr)
		r.apply(r.req.Observer.Observe(KillRequested, &r.obs))
		// Kill called while handling KillRequested raises no other event
		r.obs.killRequested = false
		r.obs.Line = line
	}
	return reply
}

func (r *run) apply(reply Reply) {
	if !reply.Payload.IsZero() {
		r.result.Payload = reply.Payload
	}
	switch reply.Control {
	case ControlContinue:
		if !r.stopped {
			r.setExitRequested(false)
		}
	case ControlStop:
		r.setExitRequested(true)
	}
}

func (r *run) setExitRequested(v bool) {
	r.result.ExitRequested = &v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
