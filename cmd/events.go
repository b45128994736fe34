/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tenantdesk/apiserver/internal/mq"
	"github.com/tenantdesk/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print domain events from the configured message queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		log.Info().Str("channel", cfg.MQ.Channel).Msg("tailing events")
		out := cmd.OutOrStdout()
		err = queue.Subscribe(ctx, cfg.MQ.Channel, func(_ context.Context, msg mq.Message) error {
			var event types.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping malformed event")
				return nil
			}
			_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", event.OccurredAt.Format(time.RFC3339), event.Type, msg.Data)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
