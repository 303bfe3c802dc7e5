package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <execution-id>",
		Short: "Request cancellation of an active execution",
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
			if exec.IsTerminal() {
				return fmt.Errorf("execution %s already finished (%s)", exec.ID[:8], exec.Status)
			}
			if err := store.RequestCancel(cmd.Context(), exec.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for %s; it takes effect at the next stage boundary.\n", exec.ID[:8])
			return nil
		},
	}
	return cmd
}
