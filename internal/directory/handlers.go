package directory

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/validator"
)

const domain = "directory"

var filterValidator = validator.New()

// RegisterRoutes mounts the directory endpoints on rg
func RegisterRoutes(rg *gin.RouterGroup, reg *Registry) {
	rg.GET("/theaters", ListTheatersHandler(reg))
	rg.GET("/theaters/:id", GetTheaterHandler(reg))
	rg.GET("/grants", ListGrantsHandler(reg))
}

// ListTheatersHandler lists theaters filtered by status, size, genre, fee and q
func ListTheatersHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f TheaterFilter
		if !bindFilter(c, &f) {
			return
		}

		theaters := reg.Theaters(f)
		c.JSON(http.StatusOK, gin.H{"theaters": theaters, "total": len(theaters)})
	}
}

// GetTheaterHandler returns one theater
func GetTheaterHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := reg.Theater(c.Param("id"))
		if !ok {
			apperrors.Render(c, apperrors.NotFound(domain, "Theater not found"))
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// ListGrantsHandler lists grants filtered by category, type and q
func ListGrantsHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f GrantFilter
		if !bindFilter(c, &f) {
			return
		}

		grants := reg.Grants(f)
		c.JSON(http.StatusOK, gin.H{"grants": grants, "total": len(grants)})
	}
}

func bindFilter(c *gin.Context, f interface{}) bool {
	if err := c.ShouldBindQuery(f); err != nil {
		apperrors.Render(c, apperrors.BadRequest("Invalid query parameters"))
		return false
	}
	if err := filterValidator.Validate(f); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			apperrors.Render(c, apperrors.ValidationError(verr.Errors))
			return false
		}
		apperrors.Render(c, err)
		return false
	}
	return true
}
