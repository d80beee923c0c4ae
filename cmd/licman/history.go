package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"licman/internal/history"
	"licman/internal/security"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyTarget string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent configure and lifecycle events",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of events to show")
	historyCmd.Flags().StringVarP(&historyTarget, "target", "t", "", "Only show events for this target (web, queue, config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	if historyTarget != "" {
		if err := security.ValidateGroupName(historyTarget); err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}
	}

	hist, err := history.NewHistory(layout.HistoryDB())
	if err != nil {
		return err
	}
	defer hist.Close()

	var events []history.Event
	if historyTarget != "" {
		events, err = hist.GetHistory(cmd.Context(), historyTarget, historyLimit)
	} else {
		events, err = hist.GetRecent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	return printEvents(os.Stdout, events)
}

func printEvents(w io.Writer, events []history.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTARGET\tACTION\tSTATUS\tDURATION\tERROR")
	for _, e := range events {
		duration := "-"
		if e.DurationSeconds != nil {
			duration = fmt.Sprintf("%.1fs", *e.DurationSeconds)
		}
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.StartedAt.Local().Format(time.DateTime), e.Target, e.Action, e.Status, duration, msg)
	}
	return tw.Flush()
}
