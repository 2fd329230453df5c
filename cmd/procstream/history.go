package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/CZERTAINLY/procstream/internal/history"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history --history FILE [run-id]",
	Short: "history lists recorded runs or events of a single run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistory, "history", "", "sqlite file with recorded runs")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of runs to list")
	_ = historyCmd.MarkFlagRequired("history")
}

func doHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := history.Open(flagHistory)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer func() {
		_ = w.Flush()
	}()

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing run id: %w", err)
		}
		events, err := store.Events(ctx, runID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "SEQ\tEVENT\tLINE#\tLINE")
		for _, e := range events {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Seq, e.Kind, e.LineNumber, e.Line)
		}
		return nil
	}

	runs, err := store.Runs(ctx, flagLimit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "RUN\tREQUEST\tSTARTED\tDURATION\tLAST EVENT\tLINES\tSTAGES\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.StoppedAt != nil {
			duration = r.StoppedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		stages := make([]string, 0, len(r.Stages))
		for _, s := range r.Stages {
			stages = append(stages, strings.Join(s, " "))
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.RequestID, r.StartedAt.Local().Format(time.DateTime), duration,
			r.LastEvent, r.Lines, strings.Join(stages, " | "), r.Err)
	}
	return nil
}
