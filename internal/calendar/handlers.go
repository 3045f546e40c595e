package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/calendarimport"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/streams"
	"github.com/jimdaga/ascend/internal/submissions"
	"gorm.io/gorm"
)

const (
	signatureHeader = "X-Nylas-Signature"
	maxWebhookBytes = 1 << 20
)

// Publisher forwards verified webhook notifications to the worker
type Publisher interface {
	Publish(ctx context.Context, ev streams.WebhookEvent) (string, error)
}

// Deps are the collaborators of the calendar endpoints. Publisher may be
// nil, in which case webhook notifications are only logged.
type Deps struct {
	DB            *gorm.DB
	Provider      Provider
	OAuth         *OAuth
	Bridge        *Bridge
	Publisher     Publisher
	WebhookSecret string
	AppURL        string
	Now           func() time.Time
}

// RegisterRoutes mounts the endpoints that need a signed-in user
func RegisterRoutes(rg *gin.RouterGroup, d Deps) {
	rg.GET("/connect", ConnectHandler(d.OAuth))
	rg.GET("/status", StatusHandler(d.DB))
	rg.POST("/events/discover", DiscoverHandler(d.DB, d.Provider, d.Now))
}

// RegisterPublicRoutes mounts the OAuth callback and the provider webhook.
// The callback identifies the user by its signed state.
func RegisterPublicRoutes(rg *gin.RouterGroup, d Deps) {
	rg.GET("/callback", CallbackHandler(d.DB, d.OAuth, d.AppURL))
	rg.GET("/webhook", WebhookChallengeHandler())
	rg.POST("/webhook", WebhookHandler(d.WebhookSecret, d.Publisher))
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		apperrors.Render(c, apperrors.Unauthorized("Authentication required"))
	}
	return userID, ok
}

func loadUser(ctx context.Context, db *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, apperrors.Unauthorized("User not found")
	}
	return user, err
}

// ConnectHandler redirects to the provider's consent screen
func ConnectHandler(o *OAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		target, err := o.AuthCodeURL(userID)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// CallbackHandler completes the connect flow, stores the grant and sends
// the browser back to the settings page
func CallbackHandler(db *gorm.DB, o *OAuth, appURL string) gin.HandlerFunc {
	settings := strings.TrimRight(appURL, "/") + "/settings"
	fail := func(c *gin.Context, msg string) {
		c.Redirect(http.StatusFound, settings+"?calendar_error=true&error="+url.QueryEscape(msg))
	}

	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context())

		if providerErr := c.Query("error"); providerErr != "" {
			fail(c, providerErr)
			return
		}

		userID, err := o.ParseState(c.Query("state"))
		if err != nil {
			logger.Warn("Calendar callback with bad state", "error", err)
			fail(c, "Invalid or expired state")
			return
		}

		code := c.Query("code")
		if code == "" {
			fail(c, "No authorization code provided")
			return
		}

		grant, err := o.Exchange(c.Request.Context(), code)
		if err != nil {
			logger.Error("Calendar code exchange failed", "user_id", userID, "error", err)
			fail(c, "Failed to connect calendar")
			return
		}

		result := db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("id = ?", userID).
			Update("calendar_grant_id", grant.ID)
		if result.Error != nil || result.RowsAffected == 0 {
			logger.Error("Failed to store calendar grant", "user_id", userID, "error", result.Error)
			fail(c, "Failed to save calendar connection")
			return
		}

		logger.Info("Calendar connected", "user_id", userID, "grant_email", grant.Email)
		c.Redirect(http.StatusFound, settings+"?calendar_connected=true")
	}
}

// StatusHandler reports whether the caller connected a calendar
func StatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		user, err := loadUser(c.Request.Context(), db, userID)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": user.HasCalendar()})
	}
}

// DiscoverRequest bounds the calendar search
type DiscoverRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

// Candidate is one relevant event and the submission guessed from it
type Candidate struct {
	Event          calendarimport.Event            `json:"event"`
	RelevanceScore int                             `json:"relevanceScore"`
	Parsed         calendarimport.ParsedSubmission `json:"parsed"`
}

// DiscoverHandler lists the caller's calendar events in a date range and
// returns the ones that look like submissions, most relevant first
func DiscoverHandler(db *gorm.DB, provider Provider, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req DiscoverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Start date and end date are required"))
			return
		}
		start, okStart := submissions.ParseDate(req.StartDate)
		end, okEnd := submissions.ParseDate(req.EndDate)
		if !okStart || !okEnd || end.Before(start) {
			apperrors.Render(c, apperrors.BadRequest("Invalid date range"))
			return
		}

		ctx := c.Request.Context()
		user, err := loadUser(ctx, db, userID)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		if !user.HasCalendar() {
			apperrors.Render(c, apperrors.BadRequest("Calendar not connected"))
			return
		}

		grantID := *user.CalendarGrantID
		calendarID, err := provider.PrimaryCalendarID(ctx, grantID)
		if err != nil {
			apperrors.Render(c, apperrors.ExternalService(err, "calendar", "Failed to load calendar"))
			return
		}
		events, err := provider.ListEvents(ctx, grantID, calendarID, start, end.Add(24*time.Hour-time.Second))
		if err != nil {
			apperrors.Render(c, apperrors.ExternalService(err, "calendar", "Failed to load calendar events"))
			return
		}

		today := now()
		relevant := calendarimport.FilterRelevant(events)
		candidates := make([]Candidate, 0, len(relevant))
		for _, ev := range relevant {
			candidates = append(candidates, Candidate{
				Event:          ev.Event,
				RelevanceScore: ev.RelevanceScore,
				Parsed:         calendarimport.Parse(ev.Event, today),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"events":  candidates,
			"total":   len(events),
			"matched": len(candidates),
		})
	}
}

// WebhookChallengeHandler answers the provider's endpoint verification
func WebhookChallengeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if challenge := c.Query("challenge"); challenge != "" {
			c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(challenge))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Webhook endpoint is active"})
	}
}

// WebhookHandler accepts provider notifications. With a secret configured
// every payload must carry a valid signature; without one unsigned payloads
// are accepted.
func WebhookHandler(secret string, publisher Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context())

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
		if err != nil {
			apperrors.Render(c, apperrors.BadRequest("Failed to read request body"))
			return
		}

		if secret != "" {
			signature := c.GetHeader(signatureHeader)
			if signature == "" || !VerifySignature(body, signature, secret) {
				logger.Warn("Invalid webhook signature", "signed", signature != "")
				apperrors.Render(c, apperrors.New(apperrors.CodeInvalidSignature, "calendar", "Invalid signature", http.StatusUnauthorized))
				return
			}
		}

		var ev streams.WebhookEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid webhook payload"))
			return
		}

		if publisher == nil {
			logger.Info("Received webhook", "type", ev.Type, "id", ev.ID)
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}

		entryID, err := publisher.Publish(c.Request.Context(), ev)
		if err != nil {
			logger.Error("Failed to queue webhook", "type", ev.Type, "error", err)
			apperrors.Render(c, apperrors.Wrap(err, apperrors.CodeInternalError, "calendar", "Webhook processing failed", http.StatusInternalServerError))
			return
		}
		logger.Info("Queued webhook", "type", ev.Type, "entry_id", entryID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// FollowUpHandler creates the follow-up event for one of the caller's
// submissions
func FollowUpHandler(bridge *Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		eventID, err := bridge.CreateFollowUp(c.Request.Context(), userID, c.Param("id"))
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"followUpEventId": eventID})
		case errors.Is(err, submissions.ErrNotFound):
			apperrors.Render(c, apperrors.NotFound("submissions", "Submission not found"))
		case errors.Is(err, ErrNotConnected):
			apperrors.Render(c, apperrors.BadRequest("Calendar not connected"))
		case errors.Is(err, ErrNoDeadline):
			apperrors.Render(c, apperrors.BadRequest("Submission has no deadline"))
		default:
			apperrors.Render(c, apperrors.ExternalService(err, "calendar", "Failed to create follow-up event"))
		}
	}
}
