package model

import (
	"fmt"
	"log/slog"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type CueErrorDetail struct {
	Path    string // jobs.0.stages
	Code    string // unknown_field | missing_required | no_jobs | type_mismatch | invalid_enum | out_of_bound | validation_error
	Message string // Human text
	Pos     CueErrorPosition
	Raw     string // original message
}

func (c CueErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", c.Code),
		slog.String("path", c.Path),
		slog.String("message", c.Message),
		slog.String("file", c.Pos.Filename),
		slog.Int("line", c.Pos.Line),
		slog.Int("column", c.Pos.Column),
	)
}

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

// CueErrDetails splits a LoadConfig error into one detail per position.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []CueErrorDetail
	for _, e := range cueerrors.Errors(err) {
		raw, args := e.Msg()
		raw = fmt.Sprintf(raw, args...)
		path := normalizePath(e.Path())
		code, msg := classify(raw, path)

		key := path + "\x00" + code
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, CueErrorDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Pos:     position(e),
			Raw:     e.Error(),
		})
	}
	return out
}

func position(err cueerrors.Error) CueErrorPosition {
	for _, r := range cueerrors.Positions(err) {
		if r.Filename() == "" {
			continue
		}
		return CueErrorPosition{
			Filename: r.Filename(),
			Line:     r.Line(),
			Column:   r.Column(),
		}
	}
	return CueErrorPosition{}
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// Remove leading definition (#Config)
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

// classify maps a CUE message onto the mistakes config.cue can report.
func classify(raw, path string) (code, msg string) {
	field := last(path)
	switch {
	case strings.Contains(raw, "not allowed"):
		return "unknown_field", fmt.Sprintf("Field %s is not allowed", field)
	case strings.Contains(raw, "incomplete value"):
		return "missing_required", fmt.Sprintf("Field %s is required", field)
	case strings.Contains(raw, "incompatible list lengths") && path == "jobs":
		return "no_jobs", "At least one job is required"
	case strings.Contains(raw, "mismatched types") && isStagePath(path):
		return "type_mismatch", "Stages must be a list of lists of strings"
	case strings.Contains(raw, "mismatched types"):
		return "type_mismatch", fmt.Sprintf("Field %s has a wrong type", field)
	case path == "service.mode":
		return "invalid_enum", fmt.Sprintf("Field mode must be %s or %s", ServiceModeManual, ServiceModeTimer)
	case strings.Contains(raw, "out of bound") || strings.Contains(raw, "invalid value"):
		return "out_of_bound", fmt.Sprintf("Field %s has invalid value", field)
	default:
		return "validation_error", raw
	}
}

// isStagePath matches jobs.N.stages and the paths below it.
func isStagePath(path string) bool {
	parts := strings.Split(path, ".")
	return len(parts) >= 3 && parts[0] == "jobs" && parts[2] == "stages"
}

func last(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}
