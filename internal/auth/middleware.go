package auth

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/logging"
)

// UserIDKey is the session and gin context key holding the signed-in user's id
const UserIDKey = "user_id"

// RequireAuth rejects requests without a signed-in session with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(UserIDKey))
		if !ok {
			apperrors.Render(c, apperrors.Unauthorized("Authentication required"))
			return
		}

		c.Set(UserIDKey, userID)
		c.Set("user_email", session.Get("user_email"))

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With("user_id", userID)
		c.Request = c.Request.WithContext(logging.WithContext(ctx, logger))

		c.Next()
	}
}

// CurrentUserID returns the id RequireAuth stored on c
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return toUserID(v)
}

// toUserID accepts the integer types a session codec may hand back
func toUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}
