package main

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/CZERTAINLY/procstream/internal/engine"
	"github.com/CZERTAINLY/procstream/internal/history"
	"github.com/CZERTAINLY/procstream/internal/log"
	"github.com/CZERTAINLY/procstream/internal/service"
)

var (
	flagShell    bool
	flagAsync    bool
	flagStopOn   string
	flagMaxLines int
	flagHistory  string
	flagID       string
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- command [args...] [| command [args...]]...",
	Short: "exec runs a pipeline and prints its merged output",
	Long: `exec runs a pipeline and prints its merged output.

Stages are separated by a standalone | argument, which has to be quoted
for the calling shell, eg procstream exec -- ls -a '|' sort`,
	Args: cobra.MinimumNArgs(1),
	RunE: doExec,
}

func init() {
	execCmd.Flags().BoolVar(&flagShell, "shell", true, "run each stage as a line of the platform shell")
	execCmd.Flags().BoolVar(&flagAsync, "async", false, "run on a worker and wait for it")
	execCmd.Flags().StringVar(&flagStopOn, "stop-on", "", "stop when a line matches the regular expression")
	execCmd.Flags().IntVar(&flagMaxLines, "max-lines", 0, "stop after the given number of lines")
	execCmd.Flags().StringVar(&flagHistory, "history", "", "record the run into a sqlite file")
	execCmd.Flags().StringVar(&flagID, "id", "", "request id, random when empty")
}

func doExec(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("procstream",
		slog.String("cmd", "exec"),
		slog.Int("pid", os.Getpid()),
	))

	var stopOn *regexp.Regexp
	if flagStopOn != "" {
		var err error
		stopOn, err = regexp.Compile(flagStopOn)
		if err != nil {
			return fmt.Errorf("parsing --stop-on: %w", err)
		}
	}
	id := flagID
	if id == "" {
		id = uuid.NewString()
	}

	req := engine.Request{
		ID:       id,
		UseShell: flagShell,
		Blocking: !flagAsync,
		Stages:   splitStages(args),
	}
	var obs engine.Observer = service.LineObserver{
		Out:      os.Stdout,
		StopOn:   stopOn,
		MaxLines: flagMaxLines,
	}
	if flagHistory != "" {
		store, err := history.Open(flagHistory)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()
		obs = store.Recorder(ctx, req, obs)
	}
	req.Observer = obs

	res := engine.Start(ctx, req)
	if res.Pending != nil {
		var err error
		res, err = res.Pending.Wait()
		if err != nil {
			return err
		}
	}
	if res.Err != nil {
		return res.Err
	}
	if match, ok := res.Payload.Strings(); ok {
		slog.DebugContext(ctx, "stopped on a match", "line", match)
	}
	return nil
}

// splitStages cuts args on standalone "|" arguments.
func splitStages(args []string) [][]string {
	stages := [][]string{{}}
	for _, arg := range args {
		if arg == "|" {
			stages = append(stages, []string{})
			continue
		}
		last := len(stages) - 1
		stages[last] = append(stages[last], arg)
	}
	return stages
}
