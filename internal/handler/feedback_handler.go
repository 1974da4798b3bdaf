package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// FeedbackHandler wires HTTP endpoints to the feedback service.
type FeedbackHandler struct {
	service *service.FeedbackService
}

// NewFeedbackHandler creates a new handler.
func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// Submit godoc
// @Summary Submit feedback
// @Description Record a new pending feedback item for the calling student
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body service.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	feedback, err := h.service.Submit(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, feedback)
}

// ListMine godoc
// @Summary List own feedback
// @Description List the calling student's feedback, newest first
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /feedback/mine [get]
func (h *FeedbackHandler) ListMine(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// ListAll godoc
// @Summary List all feedback
// @Description List every feedback item, pending first (admin only)
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) ListAll(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.ListAll(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Respond godoc
// @Summary Respond to feedback
// @Description Resolve a pending feedback item with an admin response. Feedback can only be resolved once.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path int true "Feedback ID"
// @Param payload body service.RespondFeedbackRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /feedback/{id}/respond [post]
func (h *FeedbackHandler) Respond(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid feedback id"))
		return
	}

	var req service.RespondFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	feedback, err := h.service.Respond(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, feedback, nil)
}
