package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recap/internal/pipeline"
	"recap/internal/services"
	"recap/internal/tracker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipCaptions bool
	var languageOverride string
	var profileMode string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Run the caption pipeline against one recording",
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

			orch := pipeline.New(cfg, store, logger)
			exec, err := orch.Run(runCtx, args[0], pipeline.Options{
				SkipCaptionGeneration: skipCaptions,
				LanguageOverride:      languageOverride,
				ProfileMode:           pipeline.ProfileMode(profileMode),
				DryRun:                dryRun,
				Kind:                  tracker.KindManual,
			})
			if exec != nil {
				printExecutionSummary(cmd, exec)
			}
			if services.IsFatalVerification(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "The muxed output failed verification; the recording was left untouched.")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&skipCaptions, "skip-captions", false, "Transcode and replace without generating captions")
	cmd.Flags().StringVar(&languageOverride, "language", "", "Pin the transcription language instead of auto-detecting")
	cmd.Flags().StringVar(&profileMode, "profile-mode", string(pipeline.ProfileModeStandard), "Parameter selection: standard or automatic")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Record the planned stages without touching the target")

	return cmd
}

func printExecutionSummary(cmd *cobra.Command, exec *tracker.Execution) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", exec.ID, exec.Status, exec.Path)
	if exec.ErrorMessage != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", exec.ErrorMessage)
	}
}
