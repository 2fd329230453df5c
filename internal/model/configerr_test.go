package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	type given struct {
		raw  string
		path string
	}
	type then struct {
		code string
		msg  string
	}
	var testCases = []struct {
		scenario string
		given    given
		then     then
	}{
		{
			"unknown field",
			given{"field not allowed", "jobs.0.timeout"},
			then{"unknown_field", "Field timeout is not allowed"},
		},
		{
			"missing name",
			given{"incomplete value string", "jobs.0.name"},
			then{"missing_required", "Field name is required"},
		},
		{
			"no jobs",
			given{"incompatible list lengths (0 and 1)", "jobs"},
			then{"no_jobs", "At least one job is required"},
		},
		{
			"stage is a string",
			given{`conflicting values [...string] and "ls" (mismatched types list and string)`, "jobs.1.stages.0"},
			then{"type_mismatch", "Stages must be a list of lists of strings"},
		},
		{
			"shell is a string",
			given{`conflicting values bool and "yes" (mismatched types bool and string)`, "jobs.0.shell"},
			then{"type_mismatch", "Field shell has a wrong type"},
		},
		{
			"bad mode",
			given{`2 errors in empty disjunction`, "service.mode"},
			then{"invalid_enum", "Field mode must be manual or timer"},
		},
		{
			"negative max_lines",
			given{"invalid value -1 (out of bound >0)", "jobs.0.max_lines"},
			then{"out_of_bound", "Field max_lines has invalid value"},
		},
		{
			"anything else",
			given{"something odd", "version"},
			then{"validation_error", "something odd"},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			code, msg := classify(tt.given.raw, tt.given.path)
			require.Equal(t, tt.then.code, code)
			require.Equal(t, tt.then.msg, msg)
		})
	}
}
