package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-taskflow/pkg/checkpoint"
)

var (
	errNoCheckpoint = errors.New("no checkpoint")
	errNotDeletable = errors.New("checkpoint backend cannot delete")
)

func newCheckpointCmd(a *app) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect resumable step checkpoints",
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the checkpoint saved under id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, closeFn, err := a.cfg.Checkpoint.OpenStrategy(a.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			data, ok, err := strategy.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(errNoCheckpoint, "%s", args[0])
			}

			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return errors.Wrap(err, "unable to marshal checkpoint")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <id>",
		Short: "Delete the checkpoint saved under id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, closeFn, err := a.cfg.Checkpoint.OpenStrategy(a.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			deleter, ok := strategy.(checkpoint.Deleter)
			if !ok {
				return errors.Wrapf(errNotDeletable, "%s", a.cfg.Checkpoint.Backend)
			}
			err = deleter.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("checkpoint cleared", slog.String("checkpoint_id", args[0]))

			return nil
		},
	}

	checkpointCmd.AddCommand(showCmd, clearCmd)

	return checkpointCmd
}
