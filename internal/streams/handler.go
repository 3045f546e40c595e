package streams

import (
	"context"
	"fmt"

	"github.com/jimdaga/ascend/internal/logging"
)

// EventUnlinker forgets a deleted provider event
type EventUnlinker interface {
	ClearCalendarEventID(ctx context.Context, eventID string) (int64, error)
}

// HandleWebhookEvent returns the consumer handler. Deleted events are
// unlinked from their submissions so the next sync recreates them; other
// notifications are only logged.
func HandleWebhookEvent(store EventUnlinker) func(context.Context, WebhookEvent) error {
	return func(ctx context.Context, ev WebhookEvent) error {
		logger := logging.FromContext(ctx)

		obj, err := ev.Object()
		if err != nil {
			logger.Warn("Webhook notification has unreadable data", "type", ev.Type, "error", err)
			return nil
		}

		switch ev.Type {
		case EventDeleted:
			if obj.ID == "" {
				return nil
			}
			n, err := store.ClearCalendarEventID(ctx, obj.ID)
			if err != nil {
				return fmt.Errorf("failed to unlink event %s: %w", obj.ID, err)
			}
			logger.Info("Calendar event deleted", "event_id", obj.ID, "submissions", n)
		case EventCreated, EventUpdated, CalendarCreated, CalendarUpdated, CalendarDeleted:
			logger.Info("Calendar notification", "type", ev.Type, "object_id", obj.ID)
		default:
			logger.Info("Unknown webhook type", "type", ev.Type)
		}
		return nil
	}
}
