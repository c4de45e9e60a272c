package handler

import (
	"errors"
	"strings"

	"retail-bank/internal/adapter/http/dto"
	"retail-bank/internal/adapter/http/middleware"
	"retail-bank/internal/core/domain"
	"retail-bank/pkg/apperror"
	"retail-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// callerOrAbort returns the authenticated caller, writing a 401 when absent.
func callerOrAbort(c *gin.Context) (domain.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return caller, ok
}

// bindJSON decodes and sanitizes the body into req, writing a 400 on failure.
// The decoder's error is logged, never echoed to the client.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		response.Error(c, apperror.Validation(bindMessage(err)))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// bindMessage names only the failing fields and rules.
func bindMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "Invalid request body"
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return "Invalid fields: " + strings.Join(fields, ", ")
}
