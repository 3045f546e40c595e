package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOAuth(baseURL string, stub bool) *OAuth {
	return NewOAuth(OAuthConfig{
		BaseURL:     baseURL,
		ClientID:    "client-1",
		APIKey:      "api-key",
		RedirectURL: "http://localhost:8080/api/calendar/callback",
		StateSecret: "state-secret",
		StubMode:    stub,
	})
}

func TestOAuth_StateRoundTrip(t *testing.T) {
	o := testOAuth("https://api.example.com", false)

	target, err := o.AuthCodeURL(42)
	require.NoError(t, err)

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "/v3/connect/auth", u.Path)
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/calendar/callback", u.Query().Get("redirect_uri"))

	userID, err := o.ParseState(u.Query().Get("state"))
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
}

func TestOAuth_RejectsBadState(t *testing.T) {
	o := testOAuth("https://api.example.com", false)

	_, err := o.ParseState("")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = o.ParseState("garbage")
	assert.ErrorIs(t, err, ErrInvalidState)

	other := NewOAuth(OAuthConfig{StateSecret: "different"})
	forged, err := other.signState(42)
	require.NoError(t, err)
	_, err = o.ParseState(forged)
	assert.ErrorIs(t, err, ErrInvalidState)

	o.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, err := o.signState(42)
	require.NoError(t, err)
	o.now = time.Now
	_, err = o.ParseState(stale)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOAuth_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "api-key", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"bearer","grant_id":"grant-77","email":"writer@example.com"}`))
	}))
	defer srv.Close()

	grant, err := testOAuth(srv.URL, false).Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, Grant{ID: "grant-77", Email: "writer@example.com"}, grant)
}

func TestOAuth_ExchangeWithoutGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"bearer"}`))
	}))
	defer srv.Close()

	_, err := testOAuth(srv.URL, false).Exchange(context.Background(), "code")
	assert.ErrorContains(t, err, "grant_id")
}

func TestOAuth_StubMode(t *testing.T) {
	o := testOAuth("https://unused.invalid", true)

	target, err := o.AuthCodeURL(7)
	require.NoError(t, err)
	assert.Contains(t, target, "http://localhost:8080/api/calendar/callback?code=stub&state=")

	grant, err := o.Exchange(context.Background(), "stub")
	require.NoError(t, err)
	assert.Contains(t, grant.ID, "stub-grant-")

	_, err = o.Exchange(context.Background(), "")
	assert.Error(t, err)
}
