// Package streams carries inbound calendar webhook notifications through a
// Redis stream so they are handled by the worker instead of the request.
package streams

import "encoding/json"

// StreamCalendarEvents receives every verified calendar webhook
const StreamCalendarEvents = "calendar:events"

// GroupCalendarWorkers is the consumer group of the worker processes
const GroupCalendarWorkers = "calendar-workers"

// SchemaVersionV1 tags messages written by this version of the publisher
const SchemaVersionV1 = "v1"

// Webhook notification types the consumer acts on
const (
	EventCreated    = "event.created"
	EventUpdated    = "event.updated"
	EventDeleted    = "event.deleted"
	CalendarCreated = "calendar.created"
	CalendarUpdated = "calendar.updated"
	CalendarDeleted = "calendar.deleted"
)

// WebhookEvent is one provider notification as received
type WebhookEvent struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Time int64           `json:"time,omitempty"`
	Data json.RawMessage `json:"data"`
}

// ObjectRef identifies the object a notification is about
type ObjectRef struct {
	ID         string `json:"id"`
	GrantID    string `json:"grant_id"`
	CalendarID string `json:"calendar_id"`
	Object     string `json:"object"`
}

// Object extracts data.object from the notification
func (e WebhookEvent) Object() (ObjectRef, error) {
	var payload struct {
		Object ObjectRef `json:"object"`
	}
	if len(e.Data) == 0 {
		return ObjectRef{}, nil
	}
	err := json.Unmarshal(e.Data, &payload)
	return payload.Object, err
}
