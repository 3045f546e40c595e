package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

var googleScopes = []string{"email", "profile"}

// newGothStore builds the gorilla cookie store gothic keeps the OAuth state
// in. It is separate from the gin-contrib session but shares its secret and
// cookie attributes.
func newGothStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		// Secure cookies are dropped over plain-HTTP localhost
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// InitProviders configures gothic and registers the Google provider.
// Returns false when no Google credentials are set; login then answers 503.
func InitProviders(cfg *config.Config) bool {
	gothic.Store = newGothStore(cfg)

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		slog.Warn("Google OAuth credentials not set, login disabled")
		return false
	}

	goth.UseProviders(google.New(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleCallbackURL,
		googleScopes...,
	))

	slog.Info("Login providers initialized", "providers", providerGoogle, "callback_url", cfg.GoogleCallbackURL)
	return true
}

// LoginEnabled reports whether the Google provider is registered
func LoginEnabled() bool {
	_, err := goth.GetProvider(providerGoogle)
	return err == nil
}
