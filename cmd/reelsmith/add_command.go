package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <topic>",
		Short: "Queue a new video run for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" {
				return fmt.Errorf("topic is required")
			}
			return ctx.withStore(func(store *queue.Store) error {
				run, err := store.NewRun(cmd.Context(), topic)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued run %d (%s) for %q\n", run.ID, run.UUID, run.Topic)
				return nil
			})
		},
	}
}
