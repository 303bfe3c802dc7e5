package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recap/internal/pipeline"
	"recap/internal/tracker"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <execution-id>",
		Short: "Re-run the pipeline for a failed or cancelled execution's path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := ctx.openStore(runCtx)
			if err != nil {
				return err
			}
			defer store.Close()

			prior, err := store.FindByIDPrefix(runCtx, args[0])
			if err != nil {
				return err
			}
			if !prior.IsTerminal() {
				return fmt.Errorf("execution %s is still %s; cancel it first", prior.ID[:8], prior.Status)
			}
			if prior.Status == tracker.StatusSucceeded {
				return fmt.Errorf("execution %s already succeeded; run the pipeline again explicitly if intended", prior.ID[:8])
			}

			orch := pipeline.New(cfg, store, logger)
			exec, err := orch.Run(runCtx, prior.Path, pipeline.Options{Kind: tracker.KindManual})
			if exec != nil {
				printExecutionSummary(cmd, exec)
			}
			return err
		},
	}
	return cmd
}
