package notifications

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/validator"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Job names accepted by the trigger endpoint
const (
	JobDeadline = "deadline"
	JobWeekly   = "weekly"
)

var requestValidator = validator.New()

// TriggerRequest selects the job to run now
type TriggerRequest struct {
	Type string `json:"type" validate:"required,oneof=deadline weekly"`
}

// RegisterRoutes mounts the notification endpoints on rg. rg must already
// require authentication.
func RegisterRoutes(rg *gin.RouterGroup, svc *Service) {
	rg.GET("/preferences", GetPreferencesHandler(svc))
	rg.PUT("/preferences", UpdatePreferencesHandler(svc))
	rg.GET("/history", HistoryHandler(svc))
	rg.POST("/trigger", TriggerHandler(svc))
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		apperrors.Render(c, apperrors.Unauthorized("Authentication required"))
	}
	return userID, ok
}

// GetPreferencesHandler returns the caller's preferences
func GetPreferencesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		prefs, err := svc.Preferences(c.Request.Context(), userID)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

// UpdatePreferencesHandler applies a partial preferences update
func UpdatePreferencesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req PreferencesUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid request body"))
			return
		}
		if err := requestValidator.Validate(req); err != nil {
			renderValidation(c, err)
			return
		}

		prefs, err := svc.UpdatePreferences(c.Request.Context(), userID, req)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

// HistoryHandler lists the caller's recent notifications
func HistoryHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				apperrors.Render(c, apperrors.BadRequest("limit must be a positive integer"))
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		entries, err := svc.History(c.Request.Context(), userID, limit)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": entries})
	}
}

// TriggerHandler runs a notification job synchronously
func TriggerHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			return
		}

		var req TriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid request body"))
			return
		}
		if err := requestValidator.Validate(req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid trigger type. Use 'deadline' or 'weekly'"))
			return
		}

		ctx := c.Request.Context()
		var (
			message string
			err     error
		)
		switch req.Type {
		case JobDeadline:
			var stats DeadlineRunStats
			stats, err = svc.CheckDeadlines(ctx)
			message = "Deadline check completed: " + strconv.Itoa(stats.Sent) + " sent"
		case JobWeekly:
			var stats DigestRunStats
			stats, err = svc.SendWeeklyDigests(ctx)
			message = "Weekly digest completed: " + strconv.Itoa(stats.Sent) + " sent"
		}
		if err != nil {
			apperrors.Render(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"type":    req.Type,
			"message": message,
		})
	}
}

func renderValidation(c *gin.Context, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		apperrors.Render(c, apperrors.ValidationError(verr.Errors))
		return
	}
	apperrors.Render(c, err)
}
