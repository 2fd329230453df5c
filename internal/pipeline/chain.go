// Package pipeline builds chains of pipe-connected commands and opens them
// as one merged, line oriented output stream.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/CZERTAINLY/procstream/internal/shell"
)

var (
	ErrNoStages   = errors.New("no stages")
	ErrEmptyStage = errors.New("empty stage")
)

// Stage is a single executable of a chain.
type Stage struct {
	Path string
	Args []string
}

// Chain is an ordered list of stages, stdout of stage i feeds stdin of stage i+1.
// It does not run anything until opened.
type Chain struct {
	Stages []Stage
}

// Build converts command specifications into a Chain. With useShell each
// specification is a shell line run by the platform shell, otherwise the
// first token is the executable and the rest are literal arguments.
func Build(stages [][]string, useShell bool) (Chain, error) {
	if len(stages) == 0 {
		return Chain{}, ErrNoStages
	}
	if len(stages[0]) == 0 {
		return Chain{}, fmt.Errorf("stage 0: %w", ErrEmptyStage)
	}

	sh := shell.Default()
	chain := Chain{Stages: make([]Stage, 0, len(stages))}
	for i, tokens := range stages {
		if useShell {
			path, args := sh.Wrap(tokens)
			chain.Stages = append(chain.Stages, Stage{Path: path, Args: args})
			continue
		}
		if len(tokens) == 0 {
			return Chain{}, fmt.Errorf("stage %d: %w", i, ErrEmptyStage)
		}
		chain.Stages = append(chain.Stages, Stage{
			Path: tokens[0],
			Args: append([]string(nil), tokens[1:]...),
		})
	}
	return chain, nil
}
