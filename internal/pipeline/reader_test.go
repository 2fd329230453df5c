package pipeline_test

import (
	"os/exec"
	"testing"
	"time"

	"github.com/CZERTAINLY/procstream/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("skipped, binary %s not available: %v", name, err)
	}
	return p
}

func open(t *testing.T, stages [][]string, useShell bool) *pipeline.Reader {
	t.Helper()
	chain, err := pipeline.Build(stages, useShell)
	require.NoError(t, err)
	r, err := pipeline.Open(chain)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Kill()
		_ = r.Close()
	})
	return r
}

func readAll(t *testing.T, r *pipeline.Reader) []string {
	t.Helper()
	var lines []string
	for {
		n, line, err := r.ReadLine()
		require.NoError(t, err)
		if n == 0 {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestReader(t *testing.T) {
	t.Parallel()
	_ = lookPath(t, "sh")

	t.Run("echo", func(t *testing.T) {
		t.Parallel()
		r := open(t, [][]string{{"echo", "hi"}}, true)
		n, line, err := r.ReadLine()
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, "hi", line)

		n, line, err = r.ReadLine()
		require.NoError(t, err)
		require.Zero(t, n)
		require.Empty(t, line)

		require.NoError(t, r.Kill())
		require.NoError(t, r.Kill())
		require.Empty(t, r.PIDs())
	})

	t.Run("stderr merged", func(t *testing.T) {
		t.Parallel()
		r := open(t, [][]string{{"echo out; echo err 1>&2; echo out2"}}, true)
		require.Equal(t, []string{"out", "err", "out2"}, readAll(t, r))
	})

	t.Run("crlf and missing newline", func(t *testing.T) {
		t.Parallel()
		r := open(t, [][]string{{`printf 'a\r\nb'`}}, true)
		require.Equal(t, []string{"a", "b"}, readAll(t, r))
	})

	t.Run("pipe", func(t *testing.T) {
		t.Parallel()
		_ = lookPath(t, "sort")
		r := open(t, [][]string{{`printf 'b\nc\na\n'`}, {"sort"}}, true)
		require.Equal(t, []string{"a", "b", "c"}, readAll(t, r))
	})

	t.Run("non zero exit", func(t *testing.T) {
		t.Parallel()
		r := open(t, [][]string{{"echo fail; exit 3"}}, true)
		require.Equal(t, []string{"fail"}, readAll(t, r))
		require.NoError(t, r.Kill())
	})
}

func TestReader_Direct(t *testing.T) {
	t.Parallel()
	echo := lookPath(t, "echo")
	r := open(t, [][]string{{echo, "*", "$HOME"}}, false)
	require.Equal(t, []string{"* $HOME"}, readAll(t, r))
}

func TestReader_Kill(t *testing.T) {
	t.Parallel()
	_ = lookPath(t, "sh")
	_ = lookPath(t, "sleep")

	// sleep is a child of the shell, the stream closes only when the whole group dies
	r := open(t, [][]string{{"echo started; sleep 30; echo never"}, {"cat"}}, true)
	n, line, err := r.ReadLine()
	require.NoError(t, err)
	require.NotZero(t, n)
	require.Equal(t, "started", line)
	require.Len(t, r.PIDs(), 2)

	start := time.Now()
	require.NoError(t, r.Kill())
	require.Empty(t, r.PIDs())

	n, _, err = r.ReadLine()
	require.NoError(t, err)
	require.Zero(t, n)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestReader_KillBackgroundChild(t *testing.T) {
	t.Parallel()
	_ = lookPath(t, "sh")
	_ = lookPath(t, "sleep")

	// the shell exits at once, sleep stays in its group holding the output pipe
	r := open(t, [][]string{{"sleep 30 & echo started"}}, true)
	n, line, err := r.ReadLine()
	require.NoError(t, err)
	require.NotZero(t, n)
	require.Equal(t, "started", line)

	time.Sleep(300 * time.Millisecond)
	require.Len(t, r.PIDs(), 1)

	start := time.Now()
	require.NoError(t, r.Kill())
	require.Empty(t, r.PIDs())

	n, _, err = r.ReadLine()
	require.NoError(t, err)
	require.Zero(t, n)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestReader_KillExited(t *testing.T) {
	t.Parallel()
	_ = lookPath(t, "sh")

	r := open(t, [][]string{{"echo", "done"}, {"cat"}}, true)
	require.Equal(t, []string{"done"}, readAll(t, r))
	require.NoError(t, r.Kill())
	require.NoError(t, r.Kill())
}

func TestOpen_Fail(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		chain, err := pipeline.Build([][]string{{"does not exist"}}, false)
		require.NoError(t, err)
		_, err = pipeline.Open(chain)
		var execErr *exec.Error
		require.ErrorAs(t, err, &execErr)
		require.Equal(t, "does not exist", execErr.Name)
	})

	t.Run("second stage not found", func(t *testing.T) {
		t.Parallel()
		sleep := lookPath(t, "sleep")
		chain, err := pipeline.Build([][]string{{sleep, "30"}, {"does not exist"}}, false)
		require.NoError(t, err)
		start := time.Now()
		_, err = pipeline.Open(chain)
		require.Error(t, err)
		require.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("empty chain", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.Open(pipeline.Chain{})
		require.ErrorIs(t, err, pipeline.ErrNoStages)
	})
}
