package model

import (
	"context"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Jobs    []Job   `json:"jobs" yaml:"jobs"`
	Service Service `json:"service" yaml:"service"`
}

// Job is one request the supervisor submits to the engine.
type Job struct {
	Name     string     `json:"name" yaml:"name"`
	Shell    bool       `json:"shell" yaml:"shell"`
	Stages   [][]string `json:"stages" yaml:"stages"`
	StopOn   string     `json:"stop_on,omitempty" yaml:"stop_on,omitempty"`     // regexp
	MaxLines int        `json:"max_lines,omitempty" yaml:"max_lines,omitempty"` // 0 => unlimited
}

type Service struct {
	Mode     string    `json:"mode" yaml:"mode"` // "manual" | "timer"
	Verbose  bool      `json:"verbose" yaml:"verbose"`
	History  string    `json:"history,omitempty" yaml:"history,omitempty"`   // sqlite file
	Parallel int       `json:"parallel,omitempty" yaml:"parallel,omitempty"` // 0 => all jobs at once
	Schedule *Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Schedule of the timer mode, cron has a precedence over duration.
type Schedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"` // Go duration, eg 5m
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}
	return out, nil
}

// DefaultConfig is written when no configuration file exists.
func DefaultConfig(_ context.Context) Config {
	return Config{
		Version: 0,
		Jobs: []Job{
			{
				Name:   "listing",
				Shell:  true,
				Stages: [][]string{{"ls", "-a"}, {"sort"}},
			},
		},
		Service: Service{
			Mode: ServiceModeManual,
		},
	}
}
