package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show one execution with its stage records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			exec, err := store.FindByIDPrefix(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", exec.ID)
			fmt.Fprintf(out, "Title:    %s\n", exec.Title)
			fmt.Fprintf(out, "Path:     %s\n", exec.Path)
			fmt.Fprintf(out, "Kind:     %s\n", exec.Kind)
			fmt.Fprintf(out, "Status:   %s\n", exec.Status)
			fmt.Fprintf(out, "Progress: %.0f%%\n", exec.ProgressPercent)
			fmt.Fprintf(out, "Cancel requested: %s\n", yesNo(exec.CancelRequested))
			if exec.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", exec.ErrorMessage)
			}
			if exec.StartedAt != nil {
				fmt.Fprintf(out, "Started:  %s\n", exec.StartedAt.Local().Format(time.RFC1123))
			}
			if exec.CompletedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", exec.CompletedAt.Local().Format(time.RFC1123))
			}

			if len(exec.Steps) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(exec.Steps))
			for _, step := range exec.Steps {
				rows = append(rows, []string{
					fmt.Sprintf("%d", step.Ordinal),
					step.StageName,
					string(step.Status),
					step.Duration.Round(time.Millisecond).String(),
					yesNo(step.GPUEngaged),
					formatMetadata(step.Metadata),
				})
			}
			fmt.Fprintln(out, renderTable(stepListColumns, rows))
			return nil
		},
	}
	return cmd
}

func formatMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	out := ""
	for _, key := range sortedKeys(metadata) {
		if out != "" {
			out += " "
		}
		out += key + "=" + metadata[key]
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
