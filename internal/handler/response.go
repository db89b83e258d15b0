package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/assessment-api/pkg/errors"
)

// ContextClinicianID is the gin context key holding the identity
// resolved by the auth middleware.
const ContextClinicianID = "clinicianID"

// ClinicianID returns the clinician identity resolved for the request.
func ClinicianID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextClinicianID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Error writes the response for a failed operation. Validation errors
// render as a bare field -> message object with status 400; not-found
// renders as an empty 404 body.
func Error(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrValidation:
			c.JSON(http.StatusBadRequest, appErr.Fields)
		case errors.ErrBadRequest:
			c.JSON(http.StatusBadRequest, gin.H{"detail": appErr.Message})
		case errors.ErrNotFound:
			c.Status(http.StatusNotFound)
		case errors.ErrUnauthorized:
			c.JSON(http.StatusUnauthorized, gin.H{"detail": appErr.Message})
		case errors.ErrForbidden:
			c.JSON(http.StatusForbidden, gin.H{"detail": appErr.Message})
		default:
			internalError(c, err)
		}
		return
	}
	internalError(c, err)
}

func internalError(c *gin.Context, err error) {
	log.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Str("method", c.Request.Method).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
}

// BindError converts a request binding failure into a 400 body. For
// validator failures the body is a field -> message map keyed by the
// JSON field names.
func BindError(c *gin.Context, err error) {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = bindMessage(fe)
		}
		c.JSON(http.StatusBadRequest, fields)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}

func bindMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	default:
		return "This field is invalid"
	}
}
