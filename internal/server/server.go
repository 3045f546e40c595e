// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/calendar"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/directory"
	"github.com/jimdaga/ascend/internal/health"
	"github.com/jimdaga/ascend/internal/metrics"
	"github.com/jimdaga/ascend/internal/notifications"
	"github.com/jimdaga/ascend/internal/submissions"
	"gorm.io/gorm"
)

// SessionName is the cookie holding the signed-in session
const SessionName = "ascend_session"

// Deps are the services the router exposes
type Deps struct {
	Config        *config.Config
	DB            *gorm.DB
	Logger        *slog.Logger
	Submissions   *submissions.Service
	Notifications *notifications.Service
	Calendar      calendar.Deps
	Directory     *directory.Registry
	ReadyChecks   []health.Check
	Now           func() time.Time
}

func newSessionStore(cfg *config.Config) sessions.Store {
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(d.Logger))
	r.Use(metrics.Middleware())
	r.Use(sessions.Sessions(SessionName, newSessionStore(d.Config)))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", health.ReadyHandler(d.ReadyChecks...))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authGroup := r.Group("/auth")
	authGroup.GET("/google", auth.HandleLogin)
	authGroup.GET("/google/callback", auth.HandleCallback(d.DB))
	authGroup.POST("/logout", auth.HandleLogout)

	calendar.RegisterPublicRoutes(r.Group("/api/calendar"), d.Calendar)

	api := r.Group("/api", auth.RequireAuth())
	submissions.RegisterRoutes(api.Group("/submissions"), d.Submissions, d.Now)
	if d.Calendar.Bridge != nil {
		api.POST("/submissions/:id/follow-up", calendar.FollowUpHandler(d.Calendar.Bridge))
	}
	notifications.RegisterRoutes(api.Group("/notifications"), d.Notifications)
	calendar.RegisterRoutes(api.Group("/calendar"), d.Calendar)
	directory.RegisterRoutes(api.Group("/directory"), d.Directory)

	return r
}
