package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/askiada/go-taskflow/internal/config"
)

type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Run task pipelines and inspect their checkpoints",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger

			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "taskflow.yaml", "configuration file")

	rootCmd.AddCommand(newCheckpointCmd(a), newDemoCmd(a))

	return rootCmd
}
