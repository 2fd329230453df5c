package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Reader is a started chain. Standard error of every stage and standard
// output of the last stage are written into one pipe, so lines come in the
// order the stages wrote them.
type Reader struct {
	out     *os.File
	br      *bufio.Reader
	pending error

	stages []*running
	g      errgroup.Group

	killOnce sync.Once
	killErr  error
	killed   atomic.Bool
}

type running struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Open starts every stage of the chain. An error from the first stage that
// can't be started (not found, permission denied, ...) is returned as is;
// stages already running are killed and reaped.
func Open(chain Chain) (*Reader, error) {
	if len(chain.Stages) == 0 {
		return nil, ErrNoStages
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}
	r := &Reader{
		out:    pr,
		br:     bufio.NewReader(pr),
		stages: make([]*running, 0, len(chain.Stages)),
	}

	// the child ends must be closed in this process, otherwise EOF never comes
	childEnds := []*os.File{pw}
	defer func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
	}()

	var stdin *os.File
	for i, stage := range chain.Stages {
		cmd := exec.Command(stage.Path, stage.Args...)
		if stdin != nil {
			cmd.Stdin = stdin
		}
		cmd.Stderr = pw

		var next *os.File
		if i == len(chain.Stages)-1 {
			cmd.Stdout = pw
		} else {
			nr, nw, err := os.Pipe()
			if err != nil {
				r.abort()
				return nil, fmt.Errorf("creating pipe after stage %d: %w", i, err)
			}
			childEnds = append(childEnds, nr, nw)
			cmd.Stdout = nw
			next = nr
		}
		setProcessGroup(cmd)

		if err := cmd.Start(); err != nil {
			r.abort()
			return nil, err
		}
		r.track(cmd)
		stdin = next
	}
	return r, nil
}

func (r *Reader) track(cmd *exec.Cmd) {
	s := &running{cmd: cmd, done: make(chan struct{})}
	r.stages = append(r.stages, s)
	r.g.Go(func() error {
		defer close(s.done)
		return reaped(cmd.Wait())
	})
}

func (r *Reader) abort() {
	_ = r.Kill()
	_ = r.out.Close()
}

// ReadLine blocks until a full line, EOF or an I/O error. It returns the
// number of bytes consumed and the line without its trailing "\n" or "\r\n".
// Zero bytes and nil error means EOF. The last line does not need a newline.
func (r *Reader) ReadLine() (int, string, error) {
	if r.pending != nil {
		err := r.pending
		r.pending = nil
		return 0, "", err
	}
	line, err := r.br.ReadString('\n')
	if len(line) > 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			r.pending = err
		}
		return len(line), trimEOL(line), nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return 0, "", nil
	}
	return 0, "", err
}

// Kill terminates every stage and reaps all of them. The signal goes to the
// process group of each stage, including stages whose leader already exited,
// so background children of a shell line die too. Non-zero exit statuses are
// not errors. Subsequent calls return the result of the first one.
func (r *Reader) Kill() error {
	r.killOnce.Do(func() {
		var errs []error
		for _, s := range r.stages {
			if err := kill(s.cmd.Process); err != nil {
				errs = append(errs, fmt.Errorf("killing pid %d: %w", s.cmd.Process.Pid, err))
			}
		}
		if err := r.g.Wait(); err != nil {
			errs = append(errs, err)
		}
		r.killErr = errors.Join(errs...)
		r.killed.Store(true)
	})
	return r.killErr
}

// PIDs returns process ids of stages which still have a live process: the
// stage itself, or a child left in its process group after it exited. It is
// empty once Kill returned.
func (r *Reader) PIDs() []int {
	if r.killed.Load() {
		return nil
	}
	var pids []int
	for _, s := range r.stages {
		select {
		case <-s.done:
			if groupAlive(s.cmd.Process) {
				pids = append(pids, s.cmd.Process.Pid)
			}
		default:
			pids = append(pids, s.cmd.Process.Pid)
		}
	}
	return pids
}

// Close releases the read end of the merged output.
func (r *Reader) Close() error {
	return r.out.Close()
}

func reaped(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
