package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/CZERTAINLY/procstream/internal/engine"
	"github.com/CZERTAINLY/procstream/internal/history"
	"github.com/CZERTAINLY/procstream/internal/model"
	"github.com/CZERTAINLY/procstream/internal/parallel"
)

type Supervisor struct {
	engine   *engine.Engine
	jobs     []job
	out      io.Writer
	history  *history.Store
	mode     string
	parallel int
	schedule *model.Schedule
}

type job struct {
	cfg    model.Job
	stopOn *regexp.Regexp
}

// NewSupervisor validates the configuration and opens the history file,
// if configured. Call Close when done.
func NewSupervisor(ctx context.Context, cfg model.Config, out io.Writer) (*Supervisor, error) {
	svc := cfg.Service
	if svc.Mode == model.ServiceModeTimer {
		if svc.Schedule == nil {
			return nil, errors.New("timer mode failed: service.schedule is nil")
		}
		if _, err := svc.Schedule.Interval(); err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
	}

	jobs := make([]job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		var rx *regexp.Regexp
		if j.StopOn != "" {
			var err error
			rx, err = regexp.Compile(j.StopOn)
			if err != nil {
				return nil, fmt.Errorf("job %s: parsing stop_on: %w", j.Name, err)
			}
		}
		jobs = append(jobs, job{cfg: j, stopOn: rx})
	}

	s := &Supervisor{
		engine:   engine.New(),
		jobs:     jobs,
		out:      NewSyncWriter(out),
		mode:     svc.Mode,
		parallel: svc.Parallel,
		schedule: svc.Schedule,
	}
	if svc.History != "" {
		store, err := history.Open(svc.History)
		if err != nil {
			return nil, err
		}
		s.history = store
		slog.DebugContext(ctx, "recording history", "path", svc.History)
	}
	return s, nil
}

func (s *Supervisor) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// Do runs the jobs once in manual mode, or repeatedly in timer mode until ctx
// is cancelled. Timer mode returns nil on cancellation, round errors are logged.
func (s *Supervisor) Do(ctx context.Context) error {
	if s.mode != model.ServiceModeTimer {
		return s.RunOnce(ctx)
	}

	scheduler, err := s.newScheduler(ctx)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "starting a scheduler")
	scheduler.Start()
	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
	}
	return nil
}

func (s *Supervisor) newScheduler(ctx context.Context) (gocron.Scheduler, error) {
	var definition gocron.JobDefinition
	if s.schedule.Cron != "" {
		definition = gocron.CronJob(s.schedule.Cron, false)
	} else {
		d, err := time.ParseDuration(s.schedule.Duration)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		definition = gocron.DurationJob(d)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		definition,
		gocron.NewTask(func() {
			if err := s.RunOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "round failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return scheduler, nil
}

// RunOnce runs every job, at most service.parallel of them at once, and waits
// for all of them. It returns the joined errors of failed jobs.
func (s *Supervisor) RunOnce(ctx context.Context) error {
	var errs []error
	for res, err := range parallel.Map(ctx, s.parallel, slices.Values(s.jobs), s.runJob) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		attrs := []any{"job_name", res.name, "request_id", res.requestID}
		if res.ExitRequested != nil {
			attrs = append(attrs, "exit_requested", *res.ExitRequested)
		}
		if match, ok := res.Payload.Strings(); ok {
			attrs = append(attrs, "stopped_on", match)
		}
		slog.InfoContext(ctx, "job finished", attrs...)
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type jobResult struct {
	engine.Result
	name      string
	requestID string
}

// runJob executes the job on the calling goroutine.
func (s *Supervisor) runJob(ctx context.Context, j job) (jobResult, error) {
	req := s.request(ctx, j)
	res := s.engine.Start(ctx, req)
	if res.Err != nil {
		return jobResult{}, fmt.Errorf("job %s: %w", j.cfg.Name, res.Err)
	}
	return jobResult{Result: res, name: j.cfg.Name, requestID: req.ID}, nil
}

func (s *Supervisor) request(ctx context.Context, j job) engine.Request {
	req := engine.Request{
		ID:       j.cfg.Name + "-" + uuid.NewString(),
		UseShell: j.cfg.Shell,
		Blocking: true,
		Stages:   j.cfg.Stages,
	}
	var obs engine.Observer = LineObserver{
		Prefix:   j.cfg.Name + ": ",
		Out:      s.out,
		StopOn:   j.stopOn,
		MaxLines: j.cfg.MaxLines,
	}
	if s.history != nil {
		obs = s.history.Recorder(ctx, req, obs)
	}
	req.Observer = obs
	return req
}
