package engine

import "github.com/CZERTAINLY/procstream/internal/pipeline"

type LineReader = lineReader

// WithOpener replaces pipeline.Open.
func WithOpener(open func(pipeline.Chain) (LineReader, error)) Option {
	return func(e *Engine) {
		e.open = open
	}
}
