package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case common.KindValidation, common.KindConflict, common.KindPolicyViolation:
		return http.StatusBadRequest
	case common.KindAuth:
		return http.StatusUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error, kind string) gin.H {
	msg := err.Error()
	switch kind {
	case common.KindPersistence, common.KindInternal:
		msg = "internal server error"
	case common.KindAuth:
		if errors.Is(err, common.ErrInvalidCredentials) {
			msg = "invalid credentials"
		}
	}
	return gin.H{"error": msg, "kind": kind}
}

// abortWithError writes {"error", "kind"} and stops the chain. Server
// faults are logged by the request logger through c.Error.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = validationError(verrs)
	}

	kind := common.Kind(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody(err, kind))
}

func validationError(verrs validator.ValidationErrors) error {
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &fieldError{field: fe.Field(), msg: "is required"}
	case "email":
		return &fieldError{field: fe.Field(), msg: "must be an email address"}
	default:
		return &fieldError{field: fe.Field(), msg: "is invalid (" + fe.Tag() + ")"}
	}
}

type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.field + " " + e.msg }

func (e *fieldError) Unwrap() error { return common.ErrValidation }
