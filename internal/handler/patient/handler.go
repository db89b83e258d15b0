package patient

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/assessment-api/internal/handler"
	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/service/patient"
	"github.com/jwalitptl/assessment-api/pkg/errors"
)

type Handler struct {
	svc *patient.Service
}

func NewHandler(svc *patient.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patient_list", h.ListPatients)
	r.POST("/patients", h.CreatePatient)
	r.PUT("/patients/:id", h.UpdatePatient)
	r.DELETE("/patients/:id", h.DeletePatient)
}

// ListPatients returns one page of the caller's patients, sorted and
// paginated per the query parameters.
func (h *Handler) ListPatients(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	result, err := h.svc.List(c.Request.Context(), clinicianID, listQuery(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	var payload model.PatientPayload
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

func (h *Handler) UpdatePatient(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.NotFound("patient", err))
		return
	}

	var payload model.PatientPayload
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

func (h *Handler) DeletePatient(c *gin.Context) {
	clinicianID, ok := handler.ClinicianID(c)
	if !ok {
		handler.Error(c, errors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.NotFound("patient", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), clinicianID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// listQuery reads the common list parameters. Non-integer page values
// fall back to page 1.
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
