package history_test

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/procstream/internal/engine"
	"github.com/CZERTAINLY/procstream/internal/history"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	store := open(t)

	req := engine.Request{
		ID:       "rec-1",
		UseShell: true,
		Blocking: true,
		Stages:   [][]string{{"echo one; echo two; echo three"}},
	}
	var forwarded []engine.Event
	next := engine.ObserverFunc(func(ev engine.Event, obs *engine.Observation) engine.Reply {
		forwarded = append(forwarded, ev)
		if ev == engine.IOData && obs.Line == "two" {
			return engine.Reply{Control: engine.ControlStop, Payload: engine.Strings(obs.Line)}
		}
		return engine.Reply{}
	})
	rec := store.Recorder(t.Context(), req, next)
	req.Observer = rec

	res := engine.Start(t.Context(), req)
	require.NoError(t, res.Err)
	lines, ok := res.Payload.Strings()
	require.True(t, ok)
	require.Equal(t, []string{"two"}, lines)

	runs, err := store.Runs(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	require.Equal(t, rec.RunID(), run.ID)
	require.Equal(t, "rec-1", run.RequestID)
	require.Equal(t, req.Stages, run.Stages)
	require.Equal(t, "Exited", run.LastEvent)
	require.True(t, run.ExitRequested)
	require.Empty(t, run.Err)
	require.Equal(t, 2, run.Lines)
	require.NotNil(t, run.StoppedAt)
	require.False(t, run.StoppedAt.Before(run.StartedAt))

	events, err := store.Events(t.Context(), run.ID)
	require.NoError(t, err)
	var kinds []string
	for i, e := range events {
		require.Equal(t, i+1, e.Seq)
		kinds = append(kinds, e.Kind)
	}
	require.Equal(t, []string{"Starting", "Started", "IOData", "IOData", "ExitRequested", "Exited"}, kinds)
	require.Equal(t, "one", events[2].Line)
	require.Equal(t, 2, events[3].LineNumber)

	require.Len(t, forwarded, len(events))
}

func TestRecorder_StartError(t *testing.T) {
	t.Parallel()
	store := open(t)

	req := engine.Request{ID: "rec-2", Blocking: true, Stages: [][]string{{}}}
	req.Observer = store.Recorder(t.Context(), req, nil)
	res := engine.Start(t.Context(), req)
	require.Error(t, res.Err)

	runs, err := store.Runs(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "StartError", runs[0].LastEvent)
	require.Equal(t, res.Err.Error(), runs[0].Err)
	require.Zero(t, runs[0].Lines)
}

func TestRuns_Limit(t *testing.T) {
	t.Parallel()
	store := open(t)

	for _, id := range []string{"a", "b", "c"} {
		req := engine.Request{ID: id, Blocking: true}
		req.Observer = store.Recorder(t.Context(), req, nil)
		_ = engine.Start(t.Context(), req)
	}

	runs, err := store.Runs(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "c", runs[0].RequestID)
	require.Equal(t, "b", runs[1].RequestID)
}

func TestEvents_NotFound(t *testing.T) {
	t.Parallel()
	store := open(t)

	_, err := store.Events(t.Context(), 42)
	require.ErrorIs(t, err, history.ErrNotFound)
}
