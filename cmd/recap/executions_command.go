package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recap/internal/tracker"
)

func newExecutionsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List recorded pipeline executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []tracker.Status
			for _, raw := range strings.Split(statusFilter, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				status, ok := tracker.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (known: %s)", raw, knownStatuses())
				}
				statuses = append(statuses, status)
			}

			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			executions, err := store.List(cmd.Context(), statuses, limit)
			if err != nil {
				return err
			}
			if len(executions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
				return nil
			}

			rows := make([][]string, 0, len(executions))
			for _, exec := range executions {
				rows = append(rows, []string{
					exec.ID[:8],
					exec.Title,
					string(exec.Status),
					exec.CurrentStage,
					fmt.Sprintf("%.0f%%", exec.ProgressPercent),
					formatElapsed(exec.ElapsedSeconds),
					exec.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(executionListColumns, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to show (0 for all)")

	return cmd
}

func knownStatuses() string {
	names := make([]string, 0, len(tracker.AllStatuses()))
	for _, status := range tracker.AllStatuses() {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func formatElapsed(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
