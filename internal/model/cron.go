package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrNoSchedule = errors.New("both cron and duration are empty")

// ParseCron parses a cron expression that have 5 fields or a @macro
// and returns the interval between its next two activations.
func ParseCron(expr string) (time.Duration, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return 0, fmt.Errorf("empty cron expression")
	}

	var schedule cron.Schedule
	var err error
	if strings.HasPrefix(e, "@") {
		schedule, err = cron.ParseStandard(e)
	} else {
		parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err = parser5.Parse(e)
	}
	if err != nil {
		return 0, err
	}
	next1 := schedule.Next(time.Now().UTC())
	next2 := schedule.Next(next1)
	return next2.Sub(next1), nil
}

// Interval returns the period of the schedule.
func (s Schedule) Interval() (time.Duration, error) {
	switch {
	case s.Cron != "":
		d, err := ParseCron(s.Cron)
		if err != nil {
			return 0, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		return d, nil
	case s.Duration != "":
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return 0, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("service.schedule.duration must be positive, got %s", d)
		}
		return d, nil
	default:
		return 0, ErrNoSchedule
	}
}
