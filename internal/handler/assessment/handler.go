package assessment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/assessment-api/internal/handler"
	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/service/assessment"
	"github.com/jwalitptl/assessment-api/pkg/errors"
)

type Handler struct {
	svc *assessment.Service
}

func NewHandler(svc *assessment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/assessments_list", h.ListAssessments)
	r.POST("/assessments", h.CreateAssessment)
	r.PUT("/assessments/:id", h.UpdateAssessment)
	r.DELETE("/assessments/:id", h.DeleteAssessment)
}

// ListAssessments returns one page of the caller's assessments. Supports
// exact-match filters on assessment_type, patient full name and
// date_performed, composed conjunctively.
func (h *Handler) ListAssessments(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	filters := &model.AssessmentFilters{
		AssessmentType: c.Query("assessment_type"),
		PatientName:    c.Query("patient"),
	}
	if raw := c.Query("date_performed"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			handler.Error(c, errors.ValidationField("date_performed", err.Error()))
			return
		}
		filters.DatePerformed = &date
	}

	result, err := h.svc.List(c.Request.Context(), clinicianID, filters, listQuery(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateAssessment(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	var payload model.AssessmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		handler.BindError(c, err)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), clinicianID, &payload)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateAssessment(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.NotFound("assessment", err))
		return
	}

	var payload model.AssessmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		handler.BindError(c, err)
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), clinicianID, id, &payload)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteAssessment(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.NotFound("assessment", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), clinicianID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func listQuery(c *gin.Context) model.ListQuery {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	return model.ListQuery{
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
		Page:   page,
	}
}
