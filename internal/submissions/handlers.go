package submissions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/calendarimport"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/validator"
)

// maxUploadBytes bounds a multipart CSV upload
const maxUploadBytes = 5 << 20

var requestValidator = validator.New()

// SubmissionRequest is the body of create and update calls. Dates are
// strings so any layout ParseDate understands is accepted.
type SubmissionRequest struct {
	TheaterName    string   `json:"theaterName" validate:"required,max=255"`
	ScriptTitle    string   `json:"scriptTitle" validate:"required,max=255"`
	SubmissionDate string   `json:"submissionDate" validate:"required"`
	Deadline       string   `json:"deadline"`
	Status         string   `json:"status"`
	Fee            *float64 `json:"fee" validate:"omitempty,gte=0"`
	ContactPerson  string   `json:"contactPerson" validate:"max=255"`
	ContactEmail   string   `json:"contactEmail" validate:"omitempty,email"`
	Notes          string   `json:"notes"`
	ResponseDate   string   `json:"responseDate"`
}

// toModel converts the request for userID, returning per-field problems
// the struct tags cannot express
func (r SubmissionRequest) toModel(userID uint) (models.Submission, map[string]string) {
	problems := map[string]string{}
	sub := models.Submission{
		UserID:        userID,
		TheaterName:   strings.TrimSpace(r.TheaterName),
		ScriptTitle:   strings.TrimSpace(r.ScriptTitle),
		Fee:           r.Fee,
		ContactPerson: strings.TrimSpace(r.ContactPerson),
		ContactEmail:  strings.TrimSpace(r.ContactEmail),
		Notes:         r.Notes,
		Status:        models.Status(r.Status),
	}

	if d, ok := ParseDate(r.SubmissionDate); ok {
		sub.SubmissionDate = d
	} else {
		problems["submissionDate"] = "Must be a valid date"
	}

	optionalDate := func(field, raw string) *time.Time {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		d, ok := ParseDate(raw)
		if !ok {
			problems[field] = "Must be a valid date"
			return nil
		}
		return &d
	}
	sub.Deadline = optionalDate("deadline", r.Deadline)
	sub.ResponseDate = optionalDate("responseDate", r.ResponseDate)

	if r.Status != "" && !sub.Status.Valid() {
		problems["status"] = "Must be one of: Submitted, Under Review, Accepted, Rejected, No Response"
	}

	return sub, problems
}

// RegisterRoutes mounts the submission endpoints on rg. rg must already
// require authentication.
func RegisterRoutes(rg *gin.RouterGroup, svc *Service, now func() time.Time) {
	rg.GET("", ListHandler(svc))
	rg.POST("", CreateHandler(svc))
	rg.GET("/export", ExportHandler(svc, now))
	rg.POST("/import", ImportHandler(svc))
	rg.POST("/import/file", ImportFileHandler(svc))
	rg.POST("/import/columns", SuggestColumnsHandler())
	rg.POST("/import/calendar", ImportCalendarHandler(svc, now))
	rg.GET("/:id", GetHandler(svc))
	rg.PUT("/:id", UpdateHandler(svc))
	rg.DELETE("/:id", DeleteHandler(svc))
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		apperrors.Render(c, apperrors.Unauthorized("Authentication required"))
	}
	return userID, ok
}

func renderStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		apperrors.Render(c, apperrors.NotFound("submissions", "Submission not found"))
		return
	}
	apperrors.Render(c, err)
}

func bindSubmission(c *gin.Context, userID uint) (models.Submission, bool) {
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Render(c, apperrors.BadRequest("Invalid request body"))
		return models.Submission{}, false
	}

	problems := map[string]string{}
	if err := requestValidator.Validate(req); err != nil {
		var verr *validator.ValidationError
		if !errors.As(err, &verr) {
			apperrors.Render(c, err)
			return models.Submission{}, false
		}
		problems = verr.Errors
	}

	sub, more := req.toModel(userID)
	for field, msg := range more {
		if _, exists := problems[field]; !exists {
			problems[field] = msg
		}
	}
	if len(problems) > 0 {
		apperrors.Render(c, apperrors.ValidationError(problems))
		return models.Submission{}, false
	}
	return sub, true
}

func parseFilter(c *gin.Context) (ExportFilter, bool) {
	filter := ExportFilter{Status: c.Query("status")}
	for _, bound := range []struct {
		param string
		dst   **time.Time
	}{
		{"startDate", &filter.StartDate},
		{"endDate", &filter.EndDate},
	} {
		raw := c.Query(bound.param)
		if raw == "" {
			continue
		}
		d, ok := ParseDate(raw)
		if !ok {
			apperrors.Render(c, apperrors.BadRequest(fmt.Sprintf("Invalid %s", bound.param)))
			return filter, false
		}
		*bound.dst = &d
	}
	return filter, true
}

// ListHandler returns the user's submissions
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		filter, ok := parseFilter(c)
		if !ok {
			return
		}

		subs, err := svc.List(c.Request.Context(), userID, filter)
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		if subs == nil {
			subs = []models.Submission{}
		}
		c.JSON(http.StatusOK, subs)
	}
}

// GetHandler returns one submission
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		sub, err := svc.Get(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			renderStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

// CreateHandler stores a new submission
func CreateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		sub, ok := bindSubmission(c, userID)
		if !ok {
			return
		}

		if err := svc.Create(c.Request.Context(), &sub); err != nil {
			apperrors.Render(c, err)
			return
		}
		c.JSON(http.StatusCreated, sub)
	}
}

// UpdateHandler replaces a submission's fields
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		changes, ok := bindSubmission(c, userID)
		if !ok {
			return
		}

		updated, err := svc.Update(c.Request.Context(), userID, c.Param("id"), changes)
		if err != nil {
			renderStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteHandler removes a submission
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
			renderStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ExportHandler downloads the user's submissions as CSV (default) or JSON
func ExportHandler(svc *Service, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		format := c.DefaultQuery("format", FormatCSV)
		if format != FormatCSV && format != FormatJSON {
			apperrors.Render(c, apperrors.BadRequest("Unsupported format"))
			return
		}
		filter, ok := parseFilter(c)
		if !ok {
			return
		}

		subs, err := svc.List(c.Request.Context(), userID, filter)
		if err != nil {
			apperrors.Render(c, err)
			return
		}

		var buf bytes.Buffer
		if err := Write(&buf, format, subs); err != nil {
			apperrors.Render(c, err)
			return
		}

		contentType := "text/csv"
		if format == FormatJSON {
			contentType = "application/json"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ExportFilename(format, now())))
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

// ImportRequest is the body of a CSV import made of pre-parsed rows. Cell
// values may be any JSON scalar.
type ImportRequest struct {
	Submissions   []map[string]any `json:"submissions"`
	ColumnMapping ColumnMapping    `json:"columnMapping"`
}

// rows stringifies the cell values; null becomes empty
func (r ImportRequest) rows() []map[string]string {
	rows := make([]map[string]string, 0, len(r.Submissions))
	for _, in := range r.Submissions {
		row := make(map[string]string, len(in))
		for k, v := range in {
			switch v := v.(type) {
			case nil:
				row[k] = ""
			case string:
				row[k] = v
			default:
				row[k] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ImportResponse reports a successful import
type ImportResponse struct {
	Message     string              `json:"message"`
	Imported    int                 `json:"imported"`
	Warnings    []string            `json:"warnings"`
	Submissions []models.Submission `json:"submissions"`
}

func renderImport(c *gin.Context, svc *Service, userID uint, rows []map[string]string, mapping ColumnMapping) {
	if len(rows) == 0 {
		apperrors.Render(c, apperrors.BadRequest("Invalid submissions data"))
		return
	}

	result, err := svc.Import(c.Request.Context(), userID, rows, mapping)
	if err != nil {
		apperrors.Render(c, err)
		return
	}
	if result.HasErrors() {
		apperrors.Render(c, apperrors.ValidationError(result.Errors))
		return
	}

	c.JSON(http.StatusCreated, ImportResponse{
		Message:     fmt.Sprintf("Successfully imported %d submissions", len(result.Valid)),
		Imported:    len(result.Valid),
		Warnings:    nonNil(result.Warnings),
		Submissions: result.Valid,
	})
}

// ImportHandler imports rows already parsed by the client
func ImportHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid submissions data"))
			return
		}
		renderImport(c, svc, userID, req.rows(), req.ColumnMapping)
	}
}

// ImportFileHandler imports an uploaded CSV file. Without a columnMapping
// form field the columns are mapped automatically.
func ImportFileHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		header, err := c.FormFile("file")
		if err != nil {
			apperrors.Render(c, apperrors.BadRequest("A CSV file is required in the \"file\" field"))
			return
		}
		f, err := header.Open()
		if err != nil {
			apperrors.Render(c, err)
			return
		}
		defer f.Close()

		headers, rows, err := ParseCSV(f)
		if err != nil {
			apperrors.Render(c, apperrors.BadRequest(err.Error()))
			return
		}

		mapping := AutoMapColumns(headers)
		if raw := c.PostForm("columnMapping"); raw != "" {
			mapping = ColumnMapping{}
			if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
				apperrors.Render(c, apperrors.BadRequest("Invalid columnMapping"))
				return
			}
		}
		renderImport(c, svc, userID, rows, mapping)
	}
}

// SuggestColumnsHandler proposes a column mapping for CSV headers
func SuggestColumnsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Headers []string `json:"headers" validate:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid request body"))
			return
		}
		if err := requestValidator.Validate(req); err != nil {
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				apperrors.Render(c, apperrors.ValidationError(verr.Errors))
				return
			}
			apperrors.Render(c, err)
			return
		}

		mapping := AutoMapColumns(req.Headers)
		c.JSON(http.StatusOK, gin.H{
			"columnMapping": mapping,
			"missing":       nonNilFields(mapping.Missing()),
		})
	}
}

// ImportCalendarHandler stores submissions confirmed from calendar events
func ImportCalendarHandler(svc *Service, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Submissions []calendarimport.ParsedSubmission `json:"submissions"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Submissions == nil {
			apperrors.Render(c, apperrors.BadRequest("Invalid submissions data"))
			return
		}

		subs, warnings := calendarimport.ToSubmissions(req.Submissions, userID, now())
		if err := svc.ImportBatch(c.Request.Context(), subs); err != nil {
			apperrors.Render(c, err)
			return
		}

		c.JSON(http.StatusCreated, ImportResponse{
			Message:     fmt.Sprintf("Successfully imported %d submissions from calendar", len(subs)),
			Imported:    len(subs),
			Warnings:    nonNil(warnings),
			Submissions: subs,
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFields(s []Field) []Field {
	if s == nil {
		return []Field{}
	}
	return s
}
