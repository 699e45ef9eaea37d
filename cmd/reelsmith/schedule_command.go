package main

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"reelsmith/internal/queue"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var cronSpec string
	var topics []string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Enqueue topics on a cron schedule while the worker runs",
		Long: `Runs the worker and additionally enqueues one run per configured
topic on the given cron schedule, rotating through the topic list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(topics) == 0 {
				return fmt.Errorf("at least one --topic is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			scheduler := cron.New()
			nextTopic := topicRotation(topics)
			_, err = scheduler.AddFunc(cronSpec, func() {
				topic := nextTopic()
				if topic == "" {
					return
				}
				if _, err := store.NewRun(cmd.Context(), topic); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "schedule: enqueue %q: %v\n", topic, err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled run queued for %q\n", topic)
			})
			if err != nil {
				return fmt.Errorf("invalid cron spec %q: %w", cronSpec, err)
			}

			scheduler.Start()
			defer scheduler.Stop()

			return runWorker(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "0 9 * * *", "Cron schedule for enqueueing topics")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "Topic to rotate through (repeatable)")
	return cmd
}

// topicRotation returns an iterator cycling through the topic list. Cron
// runs each firing on its own goroutine, so the counter is atomic.
func topicRotation(topics []string) func() string {
	var next atomic.Uint64
	return func() string {
		index := int((next.Add(1) - 1) % uint64(len(topics)))
		return strings.TrimSpace(topics[index])
	}
}
