package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
	"github.com/noah-isme/gin-admin-kit/pkg/response"
)

// bindJSON decodes and validates the request body, writing a 400 response
// and returning false on failure.
func bindJSON(c *gin.Context, validate *validator.Validate, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
