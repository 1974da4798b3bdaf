package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// AssessmentHandler wires HTTP endpoints to the assessment service.
type AssessmentHandler struct {
	service *service.AssessmentService
}

// NewAssessmentHandler creates a new handler.
func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// Create godoc
// @Summary Create assessment
// @Description Add a gradable assessment to a class and subject
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assessment payload"))
		return
	}

	assessment, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assessment)
}

// Get godoc
// @Summary Get assessment
// @Description Fetch one assessment by ID
// @Tags Assessments
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	assessment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assessment, nil)
}

// List godoc
// @Summary List assessments
// @Description List assessments for a class and subject, optionally scoped by dates
// @Tags Assessments
// @Produce json
// @Param class_id query int true "Class ID"
// @Param subject query string true "Subject name"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	classID := int64Query(c, "class_id")
	subject := c.Query("subject")
	if classID == nil || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id and subject are required"))
		return
	}

	assessments, err := h.service.List(c.Request.Context(), *classID, subject, dateQuery(c, "from"), dateQuery(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assessments, nil)
}

// SaveMarks godoc
// @Summary Save marks
// @Description Record scores for an assessment with per-entry outcomes. Valid entries commit even when others fail.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path int true "Assessment ID"
// @Param payload body []service.MarkEntry true "Mark entries"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/marks [post]
func (h *AssessmentHandler) SaveMarks(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	var payload struct {
		Entries []service.MarkEntry `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid marks payload"))
		return
	}

	result, err := h.service.SaveMarks(c.Request.Context(), principal, id, payload.Entries)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ListMarks godoc
// @Summary List marks
// @Description List the recorded marks for an assessment
// @Tags Assessments
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/marks [get]
func (h *AssessmentHandler) ListMarks(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	marks, err := h.service.ListMarks(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, marks, nil)
}

// StudentAverage godoc
// @Summary Student weighted average
// @Description Compute a student's weighted average for one class and subject
// @Tags Assessments
// @Produce json
// @Param id path int true "Student ID"
// @Param class_id query int true "Class ID"
// @Param subject query string true "Subject name"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/average [get]
func (h *AssessmentHandler) StudentAverage(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student id"))
		return
	}
	classID := int64Query(c, "class_id")
	subject := c.Query("subject")
	if classID == nil || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id and subject are required"))
		return
	}

	average, err := h.service.StudentAverage(c.Request.Context(), principal, studentID, *classID, subject)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, average, nil)
}

// Statistics godoc
// @Summary Class statistics
// @Description Per-assessment descriptive statistics for a class and subject
// @Tags Assessments
// @Produce json
// @Param class_id query int true "Class ID"
// @Param subject query string true "Subject name"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /assessments/statistics [get]
func (h *AssessmentHandler) Statistics(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := int64Query(c, "class_id")
	subject := c.Query("subject")
	if classID == nil || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id and subject are required"))
		return
	}

	stats, err := h.service.ClassStatistics(c.Request.Context(), principal, *classID, subject, dateQuery(c, "from"), dateQuery(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// ExportStatisticsCSV godoc
// @Summary Export class statistics as CSV
// @Description Download per-assessment statistics for a class and subject as CSV
// @Tags Assessments
// @Produce text/csv
// @Param class_id query int true "Class ID"
// @Param subject query string true "Subject name"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} response.Envelope
// @Router /assessments/statistics/export [get]
func (h *AssessmentHandler) ExportStatisticsCSV(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := int64Query(c, "class_id")
	subject := c.Query("subject")
	if classID == nil || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id and subject are required"))
		return
	}

	payload, err := h.service.ExportStatisticsCSV(c.Request.Context(), principal, *classID, subject, dateQuery(c, "from"), dateQuery(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("class_%d_%s_statistics.csv", *classID, subject)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// Delete godoc
// @Summary Delete assessment
// @Description Remove an assessment and all of its marks
// @Tags Assessments
// @Produce json
// @Param id path int true "Assessment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export marks as CSV
// @Description Download the assessment's mark sheet as CSV
// @Tags Assessments
// @Produce text/csv
// @Param id path int true "Assessment ID"
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/export [get]
func (h *AssessmentHandler) ExportCSV(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	payload, err := h.service.ExportMarksCSV(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_%d_marks.csv", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export marks as PDF
// @Description Download the assessment's mark sheet as a tabular PDF
// @Tags Assessments
// @Produce application/pdf
// @Param id path int true "Assessment ID"
// @Success 200 {string} string "PDF payload"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/export/pdf [get]
func (h *AssessmentHandler) ExportPDF(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assessment id"))
		return
	}

	payload, err := h.service.ExportMarksPDF(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_%d_marks.pdf", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
