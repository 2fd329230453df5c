package service

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"

	"github.com/CZERTAINLY/procstream/internal/engine"
)

// LineObserver writes every IOData line to Out and stops the run when a line
// matches StopOn or when MaxLines lines were seen.
type LineObserver struct {
	Prefix   string
	Out      io.Writer
	StopOn   *regexp.Regexp
	MaxLines int
}

func (o LineObserver) Observe(ev engine.Event, obs *engine.Observation) engine.Reply {
	switch ev {
	case engine.Started:
		slog.Debug("pipeline started", "request_id", obs.RequestID, "pids", obs.PIDs())
	case engine.IOData:
		_, err := fmt.Fprintln(o.Out, o.Prefix+obs.Line)
		if err != nil {
			slog.Error("writing line", "request_id", obs.RequestID, "error", err)
			return engine.Reply{Control: engine.ControlStop}
		}
		if o.StopOn != nil && o.StopOn.MatchString(obs.Line) {
			return engine.Reply{Control: engine.ControlStop, Payload: engine.Strings(obs.Line)}
		}
		if o.MaxLines > 0 && obs.LineNumber >= o.MaxLines {
			return engine.Reply{Control: engine.ControlStop}
		}
		return engine.Reply{Control: engine.ControlContinue}
	case engine.StartError, engine.IOError, engine.KillError:
		slog.Warn("run failed", "request_id", obs.RequestID, "event", ev.String(), "reason", obs.Line)
	}
	return engine.Reply{}
}

// SyncWriter serializes writes of concurrently running jobs, so lines never
// interleave.
type SyncWriter struct {
	mx sync.Mutex
	w  io.Writer
}

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.w.Write(p)
}
