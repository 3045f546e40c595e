package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/calendarimport"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	events []streams.WebhookEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev streams.WebhookEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, ev)
	return "1-0", nil
}

type handlerEnv struct {
	bridgeEnv
	router    *gin.Engine
	oauth     *OAuth
	publisher *fakePublisher
}

func setupRouter(t *testing.T, connected bool) handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := newBridgeEnv(t, connected)
	publisher := &fakePublisher{}
	o := testOAuth("https://api.example.com", true)
	deps := Deps{
		DB:            env.db,
		Provider:      env.provider,
		OAuth:         o,
		Bridge:        env.bridge,
		Publisher:     publisher,
		WebhookSecret: "hook-secret",
		AppURL:        "https://ascend.test",
		Now:           func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
	}

	r := gin.New()
	authed := r.Group("/api", func(c *gin.Context) {
		c.Set(auth.UserIDKey, env.user.ID)
		c.Next()
	})
	RegisterRoutes(authed.Group("/calendar"), deps)
	authed.POST("/submissions/:id/follow-up", FollowUpHandler(env.bridge))
	RegisterPublicRoutes(r.Group("/api/calendar"), deps)

	return handlerEnv{bridgeEnv: env, router: r, oauth: o, publisher: publisher}
}

func (e handlerEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestStatusHandler(t *testing.T) {
	w := setupRouter(t, true).do(http.MethodGet, "/api/calendar/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connected":true}`, w.Body.String())

	w = setupRouter(t, false).do(http.MethodGet, "/api/calendar/status", "", nil)
	assert.JSONEq(t, `{"connected":false}`, w.Body.String())
}

func TestConnectAndCallback(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(http.MethodGet, "/api/calendar/connect", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)

	w = env.do(http.MethodGet, "/api/calendar/callback?"+loc.RawQuery, "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://ascend.test/settings?calendar_connected=true", w.Header().Get("Location"))

	var user models.User
	require.NoError(t, env.db.First(&user, env.user.ID).Error)
	assert.True(t, user.HasCalendar())
}

func TestCallbackHandler_Errors(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(http.MethodGet, "/api/calendar/callback?error=access_denied", "", nil)
	assert.Contains(t, w.Header().Get("Location"), "calendar_error=true&error=access_denied")

	w = env.do(http.MethodGet, "/api/calendar/callback?code=abc&state=forged", "", nil)
	assert.Contains(t, w.Header().Get("Location"), "Invalid+or+expired+state")

	state, err := env.oauth.signState(env.user.ID)
	require.NoError(t, err)
	w = env.do(http.MethodGet, "/api/calendar/callback?state="+state, "", nil)
	assert.Contains(t, w.Header().Get("Location"), "No+authorization+code+provided")
}

func TestDiscoverHandler(t *testing.T) {
	env := setupRouter(t, true)
	env.provider.events = []calendarimport.Event{
		{ID: "e1", Title: "Dinner"},
		{ID: "e2", Title: "Submit to Magic Theatre", Description: `Script: "The Last Act"`, When: calendarimport.When{Date: "2025-04-01"}},
	}

	w := env.do(http.MethodPost, "/api/calendar/events/discover", `{"startDate":"2025-03-01","endDate":"2025-04-30"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Events  []Candidate `json:"events"`
		Total   int         `json:"total"`
		Matched int         `json:"matched"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "e2", resp.Events[0].Event.ID)
	assert.Equal(t, "Magic", resp.Events[0].Parsed.TheaterName)
	assert.Equal(t, "The Last Act", resp.Events[0].Parsed.ScriptTitle)
	assert.Equal(t, "e2", resp.Events[0].Parsed.CalendarEventID)
}

func TestDiscoverHandler_Errors(t *testing.T) {
	env := setupRouter(t, true)

	w := env.do(http.MethodPost, "/api/calendar/events/discover", `{"startDate":"2025-03-01"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/calendar/events/discover", `{"startDate":"2025-04-01","endDate":"2025-03-01"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.provider.err = errors.New("provider down")
	w = env.do(http.MethodPost, "/api/calendar/events/discover", `{"startDate":"2025-03-01","endDate":"2025-04-01"}`, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	disconnected := setupRouter(t, false)
	w = disconnected.do(http.MethodPost, "/api/calendar/events/discover", `{"startDate":"2025-03-01","endDate":"2025-04-01"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Calendar not connected")
}

func TestWebhookChallenge(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(http.MethodGet, "/api/calendar/webhook?challenge=abc123", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = env.do(http.MethodGet, "/api/calendar/webhook", "", nil)
	assert.Contains(t, w.Body.String(), "Webhook endpoint is active")
}

func TestWebhookHandler(t *testing.T) {
	env := setupRouter(t, false)
	body := `{"id":"n-1","type":"event.deleted","data":{"object":{"id":"evt-1"}}}`
	signed := map[string]string{"X-Nylas-Signature": Sign([]byte(body), "hook-secret")}

	w := env.do(http.MethodPost, "/api/calendar/webhook", body, signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, "event.deleted", env.publisher.events[0].Type)

	w = env.do(http.MethodPost, "/api/calendar/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
	assert.Len(t, env.publisher.events, 1)

	w = env.do(http.MethodPost, "/api/calendar/webhook", body, map[string]string{
		"X-Nylas-Signature": Sign([]byte(body), "wrong"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
	assert.Len(t, env.publisher.events, 1)

	bad := `{not json`
	w = env.do(http.MethodPost, "/api/calendar/webhook", bad, map[string]string{
		"X-Nylas-Signature": Sign([]byte(bad), "hook-secret"),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.publisher.err = errors.New("redis down")
	w = env.do(http.MethodPost, "/api/calendar/webhook", body, signed)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookHandler_NoSecretAcceptsUnsigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	publisher := &fakePublisher{}
	r := gin.New()
	r.POST("/webhook", WebhookHandler("", publisher))

	body := `{"id":"n-2","type":"event.updated","data":{"object":{"id":"evt-2"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "event.updated", publisher.events[0].Type)
}

func TestFollowUpHandler(t *testing.T) {
	env := setupRouter(t, true)
	sub := env.addSubmission(t, deadline())

	w := env.do(http.MethodPost, "/api/submissions/"+sub.ID+"/follow-up", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"followUpEventId":"evt-1"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/submissions/unknown/follow-up", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	undated := env.addSubmission(t, nil)
	w = env.do(http.MethodPost, "/api/submissions/"+undated.ID+"/follow-up", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.provider.err = errors.New("provider down")
	w = env.do(http.MethodPost, "/api/submissions/"+sub.ID+"/follow-up", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
