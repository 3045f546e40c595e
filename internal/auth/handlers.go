package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"
)

const providerGoogle = "google"

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	if !LoginEnabled() {
		apperrors.Render(c, apperrors.New(apperrors.CodeExternalServiceError, "auth", "Login is not configured", http.StatusServiceUnavailable))
		return
	}

	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Set("provider", providerGoogle)
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user, and stores the
// user's id in the session
func HandleCallback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Set("provider", providerGoogle)
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Warn("Auth error", "error", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		user, err := UpsertUser(db, gothUser, time.Now().UTC())
		if err != nil {
			slog.Error("Failed to upsert user", "email", gothUser.Email, "error", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		session := sessions.Default(c)
		session.Set(UserIDKey, user.ID)
		session.Set("user_email", user.Email)
		if err := session.Save(); err != nil {
			slog.Error("Session save error", "error", err)
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		slog.Info("User authenticated", "user_id", user.ID)
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// UpsertUser creates or refreshes the user, its Google identity, and its
// default notification preferences in one transaction
func UpsertUser(db *gorm.DB, gu goth.User, now time.Time) (models.User, error) {
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", gu.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:          gu.Email,
				Name:           gu.Name,
				ProviderUserID: gu.UserID,
				LastLoginAt:    &now,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up user: %w", err)
		default:
			if err := tx.Model(&user).Updates(map[string]interface{}{
				"name":             gu.Name,
				"provider_user_id": gu.UserID,
				"last_login_at":    now,
			}).Error; err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		var identity models.AuthIdentity
		err = tx.Where("provider = ? AND provider_user_id = ?", providerGoogle, gu.UserID).First(&identity).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up identity: %w", err)
		}
		identity.UserID = user.ID
		identity.Provider = providerGoogle
		identity.ProviderUserID = gu.UserID
		identity.AccessToken = gu.AccessToken
		identity.RefreshToken = gu.RefreshToken
		if !gu.ExpiresAt.IsZero() {
			expiry := gu.ExpiresAt.UTC()
			identity.TokenExpiry = &expiry
		}
		// Save runs the sealing hooks on both insert and update
		if err := tx.Save(&identity).Error; err != nil {
			return fmt.Errorf("failed to save identity: %w", err)
		}

		var count int64
		if err := tx.Model(&models.NotificationPreferences{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check preferences: %w", err)
		}
		if count == 0 {
			prefs := models.DefaultPreferences(user.ID)
			if err := tx.Create(&prefs).Error; err != nil {
				return fmt.Errorf("failed to create preferences: %w", err)
			}
		}
		return nil
	})
	return user, err
}

// HandleLogout clears the session
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		slog.Warn("Session clear error", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
