package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// DoubtHandler wires HTTP endpoints to the doubt service.
type DoubtHandler struct {
	service *service.DoubtService
}

// NewDoubtHandler creates a new handler.
func NewDoubtHandler(svc *service.DoubtService) *DoubtHandler {
	return &DoubtHandler{service: svc}
}

// Submit godoc
// @Summary Submit doubt
// @Description Record a new open doubt for the calling student
// @Tags Doubts
// @Accept json
// @Produce json
// @Param payload body service.SubmitDoubtRequest true "Doubt payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /doubts [post]
func (h *DoubtHandler) Submit(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitDoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid doubt payload"))
		return
	}

	doubt, err := h.service.Submit(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doubt)
}

// ListMine godoc
// @Summary List own doubts
// @Description List the calling student's doubts, newest first
// @Tags Doubts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doubts/mine [get]
func (h *DoubtHandler) ListMine(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doubts, err := h.service.ListMine(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doubts, nil)
}

// ListOpen godoc
// @Summary List open doubts
// @Description List the open doubt backlog. Teachers only see doubts for their assigned subjects.
// @Tags Doubts
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /doubts/open [get]
func (h *DoubtHandler) ListOpen(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doubts, err := h.service.ListOpen(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doubts, nil)
}

// Answer godoc
// @Summary Answer doubt
// @Description Resolve an open doubt with a response. A doubt can only be answered once.
// @Tags Doubts
// @Accept json
// @Produce json
// @Param id path int true "Doubt ID"
// @Param payload body service.AnswerDoubtRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /doubts/{id}/answer [post]
func (h *DoubtHandler) Answer(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid doubt id"))
		return
	}

	var req service.AnswerDoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	doubt, err := h.service.Answer(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doubt, nil)
}
