package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/hris-auth/internal/core/events"
	"github.com/frahmantamala/hris-auth/pkg/logger"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish auth events to the event bus for debugging handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus. Known types: ` + fmt.Sprint(events.AuthEventTypes),
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(context.Background(), args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var eventData string

func publishTestEvent(ctx context.Context, eventType string) error {
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	eventBus.SubscribeAll(events.AuthEventTypes, events.LogHandler(lg))
	if eventBus.HandlerCount(eventType) == 0 {
		eventBus.Subscribe(eventType, events.LogHandler(lg))
	}

	testEvent := events.BaseEvent{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)
	if err := eventBus.PublishSync(ctx, testEvent); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
