package pipeline_test

import (
	"runtime"
	"testing"

	"github.com/CZERTAINLY/procstream/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("expectations use /bin/sh")
	}

	type given struct {
		stages   [][]string
		useShell bool
	}
	var testCases = []struct {
		scenario string
		given    given
		then     pipeline.Chain
	}{
		{
			"direct single",
			given{[][]string{{"ls", "-l", "*.go"}}, false},
			pipeline.Chain{Stages: []pipeline.Stage{{Path: "ls", Args: []string{"-l", "*.go"}}}},
		},
		{
			"direct pipe",
			given{[][]string{{"ls"}, {"sort", "-r"}}, false},
			pipeline.Chain{Stages: []pipeline.Stage{
				{Path: "ls"},
				{Path: "sort", Args: []string{"-r"}},
			}},
		},
		{
			"shell single",
			given{[][]string{{`echo "Sandy"`}}, true},
			pipeline.Chain{Stages: []pipeline.Stage{{Path: "/bin/sh", Args: []string{"-c", `echo "Sandy"`}}}},
		},
		{
			"shell pipe",
			given{[][]string{{"ls", "-a"}, {"sort"}}, true},
			pipeline.Chain{Stages: []pipeline.Stage{
				{Path: "/bin/sh", Args: []string{"-c", "ls -a"}},
				{Path: "/bin/sh", Args: []string{"-c", "sort"}},
			}},
		},
		{
			"shell later empty stage",
			given{[][]string{{"ls"}, {}}, true},
			pipeline.Chain{Stages: []pipeline.Stage{
				{Path: "/bin/sh", Args: []string{"-c", "ls"}},
				{Path: "/bin/sh", Args: []string{"-c", ""}},
			}},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			chain, err := pipeline.Build(tt.given.stages, tt.given.useShell)
			require.NoError(t, err)
			require.Equal(t, tt.then, chain)
		})
	}
}

func TestBuild_Fail(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		stages   [][]string
		useShell bool
		then     error
	}{
		{"nil", nil, true, pipeline.ErrNoStages},
		{"no stages", [][]string{}, false, pipeline.ErrNoStages},
		{"empty first shell", [][]string{{}}, true, pipeline.ErrEmptyStage},
		{"empty first direct", [][]string{{}, {"sort"}}, false, pipeline.ErrEmptyStage},
		{"empty later direct", [][]string{{"ls"}, {}}, false, pipeline.ErrEmptyStage},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := pipeline.Build(tt.stages, tt.useShell)
			require.ErrorIs(t, err, tt.then)
		})
	}
}
