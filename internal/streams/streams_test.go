package streams

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUnlinker struct {
	cleared []string
	err     error
}

func (f *fakeUnlinker) ClearCalendarEventID(_ context.Context, eventID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.cleared = append(f.cleared, eventID)
	return 1, nil
}

func event(t *testing.T, kind, objectID string) WebhookEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"object": map[string]any{"id": objectID, "grant_id": "g-1", "object": "event"},
	})
	require.NoError(t, err)
	return WebhookEvent{ID: "n-1", Type: kind, Data: data}
}

func TestHandleWebhookEvent_DeletedUnlinks(t *testing.T) {
	store := &fakeUnlinker{}
	handle := HandleWebhookEvent(store)

	require.NoError(t, handle(context.Background(), event(t, EventDeleted, "evt-9")))
	assert.Equal(t, []string{"evt-9"}, store.cleared)
}

func TestHandleWebhookEvent_OtherTypesOnlyLog(t *testing.T) {
	store := &fakeUnlinker{}
	handle := HandleWebhookEvent(store)

	for _, kind := range []string{EventCreated, EventUpdated, CalendarDeleted, "grant.expired"} {
		require.NoError(t, handle(context.Background(), event(t, kind, "evt-1")))
	}
	assert.Empty(t, store.cleared)
}

func TestHandleWebhookEvent_StoreErrorKeepsPending(t *testing.T) {
	handle := HandleWebhookEvent(&fakeUnlinker{err: errors.New("db down")})
	err := handle(context.Background(), event(t, EventDeleted, "evt-9"))
	assert.ErrorContains(t, err, "evt-9")
}

func TestHandleWebhookEvent_BadDataIsDropped(t *testing.T) {
	store := &fakeUnlinker{}
	handle := HandleWebhookEvent(store)

	ev := WebhookEvent{Type: EventDeleted, Data: json.RawMessage(`"not an object"`)}
	require.NoError(t, handle(context.Background(), ev))
	assert.Empty(t, store.cleared)
}

func TestDecode(t *testing.T) {
	payload, err := json.Marshal(event(t, EventDeleted, "evt-3"))
	require.NoError(t, err)

	ev, err := decode(map[string]interface{}{"payload": string(payload)})
	require.NoError(t, err)
	assert.Equal(t, EventDeleted, ev.Type)
	obj, err := ev.Object()
	require.NoError(t, err)
	assert.Equal(t, "evt-3", obj.ID)

	_, err = decode(map[string]interface{}{})
	assert.Error(t, err)
	_, err = decode(map[string]interface{}{"payload": "{"})
	assert.Error(t, err)
}
