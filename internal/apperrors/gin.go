package apperrors

import (
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/logging"
)

// ErrorResponse is the JSON envelope for every error response
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// Renderer writes errors to gin responses. Debug exposes wrapped error
// messages of unexpected failures.
type Renderer struct {
	Debug bool
}

// Render writes err as JSON and aborts the chain
func (r Renderer) Render(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
		if r.Debug {
			appErr.Details = err.Error()
		}
	}

	if appErr.HTTPCode >= 500 {
		logging.FromContext(c.Request.Context()).Error("Request failed",
			"code", appErr.Code,
			"path", c.FullPath(),
			"error", appErr.Error(),
		)
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

var defaultRenderer Renderer

// SetDebug toggles Debug on the renderer used by Render
func SetDebug(debug bool) {
	defaultRenderer.Debug = debug
}

// Render writes err with the package renderer
func Render(c *gin.Context, err error) {
	defaultRenderer.Render(c, err)
}
