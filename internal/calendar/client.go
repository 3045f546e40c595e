// Package calendar mirrors submission deadlines into the user's external
// calendar through a Nylas v3 style REST API.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/ascend/internal/calendarimport"
)

// Provider is the subset of the calendar API the app uses
type Provider interface {
	PrimaryCalendarID(ctx context.Context, grantID string) (string, error)
	CreateEvent(ctx context.Context, grantID, calendarID string, ev EventInput) (string, error)
	UpdateEvent(ctx context.Context, grantID, calendarID, eventID string, ev EventInput) error
	ListEvents(ctx context.Context, grantID, calendarID string, start, end time.Time) ([]calendarimport.Event, error)
}

// Reminder is one reminder override. Method is "email" or "popup".
type Reminder struct {
	Minutes int    `json:"reminder_minutes"`
	Method  string `json:"reminder_method"`
}

// Reminders replaces the calendar's default reminders
type Reminders struct {
	UseDefault bool       `json:"use_default"`
	Overrides  []Reminder `json:"overrides"`
}

// EventWhen is a timed span in unix seconds
type EventWhen struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

// EventInput is the body of create and update calls. Empty fields are left
// unchanged on update.
type EventInput struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	When        *EventWhen `json:"when,omitempty"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

// APIError is a non-2xx response from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar API returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the calendar provider. In stub mode it returns synthetic
// data without network I/O.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a Client with a 30 second request timeout
func NewClient(baseURL, apiKey string, stubMode bool) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// Stubbed reports whether the client skips the network
func (c *Client) Stubbed() bool {
	return c.stubMode
}

type envelope[T any] struct {
	RequestID string `json:"request_id"`
	Data      T      `json:"data"`
}

type calendarInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}

// PrimaryCalendarID returns the id of the grant's primary calendar
func (c *Client) PrimaryCalendarID(ctx context.Context, grantID string) (string, error) {
	if c.stubMode {
		return "primary", nil
	}

	var resp envelope[[]calendarInfo]
	if err := c.do(ctx, http.MethodGet, c.grantPath(grantID, "calendars"), nil, nil, &resp); err != nil {
		return "", err
	}
	for _, cal := range resp.Data {
		if cal.IsPrimary {
			return cal.ID, nil
		}
	}
	return "", fmt.Errorf("primary calendar not found")
}

// CreateEvent creates ev on calendarID and returns the new event id
func (c *Client) CreateEvent(ctx context.Context, grantID, calendarID string, ev EventInput) (string, error) {
	if c.stubMode {
		return "stub-event-" + uuid.NewString(), nil
	}

	query := url.Values{"calendar_id": {calendarID}}
	var resp envelope[struct {
		ID string `json:"id"`
	}]
	if err := c.do(ctx, http.MethodPost, c.grantPath(grantID, "events"), query, ev, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("calendar API returned no event id")
	}
	return resp.Data.ID, nil
}

// UpdateEvent applies ev to an existing event
func (c *Client) UpdateEvent(ctx context.Context, grantID, calendarID, eventID string, ev EventInput) error {
	if c.stubMode {
		return nil
	}

	query := url.Values{"calendar_id": {calendarID}}
	path := c.grantPath(grantID, "events/"+url.PathEscape(eventID))
	return c.do(ctx, http.MethodPut, path, query, ev, nil)
}

// ListEvents returns the events on calendarID between start and end
func (c *Client) ListEvents(ctx context.Context, grantID, calendarID string, start, end time.Time) ([]calendarimport.Event, error) {
	if c.stubMode {
		return stubEvents(start), nil
	}

	query := url.Values{
		"calendar_id": {calendarID},
		"start":       {strconv.FormatInt(start.Unix(), 10)},
		"end":         {strconv.FormatInt(end.Unix(), 10)},
		"limit":       {"200"},
	}
	var resp envelope[[]calendarimport.Event]
	if err := c.do(ctx, http.MethodGet, c.grantPath(grantID, "events"), query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) grantPath(grantID, rest string) string {
	return "/v3/grants/" + url.PathEscape(grantID) + "/" + rest
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// stubEvents are the sample events served in stub mode, dated from start
func stubEvents(start time.Time) []calendarimport.Event {
	day := func(offset int) string {
		return start.UTC().AddDate(0, 0, offset).Format("2006-01-02")
	}
	return []calendarimport.Event{
		{
			ID:          "stub-1",
			CalendarID:  "primary",
			Title:       "Submit to Magic Theatre",
			Description: `Deadline for new play submissions. Script: "The Last Act"`,
			Location:    "Magic Theatre, San Francisco",
			When:        calendarimport.When{Date: day(30)},
			Participants: []calendarimport.Participant{
				{Email: "literary@magictheatre.org", Name: "Literary Manager"},
			},
		},
		{
			ID:          "stub-2",
			CalendarID:  "primary",
			Title:       "Response Due - Playwrights Foundation",
			Description: `Response expected for "Summer Dreams" submission`,
			Location:    "Playwrights Foundation",
			When:        calendarimport.When{Date: day(14)},
		},
		{
			ID:         "stub-3",
			CalendarID: "primary",
			Title:      "Dentist appointment",
			When:       calendarimport.When{Date: day(3)},
		},
	}
}
