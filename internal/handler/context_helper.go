package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gin-admin-kit/internal/middleware"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
	"github.com/noah-isme/gin-admin-kit/pkg/response"
)

// requireClaims returns the authenticated claims or writes a 401.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
