package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gin-admin-kit/internal/bus"
	"github.com/noah-isme/gin-admin-kit/internal/models"
	"github.com/noah-isme/gin-admin-kit/internal/service"
	"github.com/noah-isme/gin-admin-kit/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth commands.
type AuthHandler struct {
	commands  *service.CommandBus
	queries   *service.QueryBus
	deps      service.CommandDeps
	queryDeps service.QueryDeps
	validator *validator.Validate
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(commands *service.CommandBus, queries *service.QueryBus, deps service.CommandDeps, queryDeps service.QueryDeps, validate *validator.Validate) *AuthHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthHandler{commands: commands, queries: queries, deps: deps, queryDeps: queryDeps, validator: validate}
}

// Register godoc
// @Summary Register account
// @Description Create an account and return a token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Register payload"
// @Success 201 {object} response.Envelope{data=models.TokenPair}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, h.validator, &req, "invalid register payload") {
		return
	}

	pair, err := bus.DispatchAs[*models.TokenPair](c.Request.Context(), h.commands, service.RegisterUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	}, h.deps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, pair)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope{data=models.TokenPair}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.validator, &req, "invalid login payload") {
		return
	}

	pair, err := bus.DispatchAs[*models.TokenPair](c.Request.Context(), h.commands, service.LoginUser{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	}, h.deps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope{data=models.TokenPair}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, h.validator, &req, "invalid refresh payload") {
		return
	}

	pair, err := bus.DispatchAs[*models.TokenPair](c.Request.Context(), h.commands, service.RefreshToken{Token: req.RefreshToken}, h.deps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}

// Logout godoc
// @Summary Logout
// @Description Revoke a refresh token. Unknown tokens are accepted.
// @Tags Authentication
// @Accept json
// @Param payload body models.LogoutRequest true "Refresh token"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if !bindJSON(c, h.validator, &req, "refresh token required") {
		return
	}

	if _, err := h.commands.Dispatch(c.Request.Context(), service.LogoutUser{Token: req.RefreshToken, ClientIP: c.ClientIP()}, h.deps); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for the current user and revoke its refresh tokens
// @Tags Authentication
// @Accept json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !bindJSON(c, h.validator, &req, "invalid change password payload") {
		return
	}

	if _, err := h.commands.Dispatch(c.Request.Context(), service.ChangePassword{
		UserID:      claims.Subject,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}, h.deps); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.UserInfo}
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	user, err := bus.DispatchAs[*models.User](c.Request.Context(), h.queries, service.GetUser{UserID: claims.Subject}, h.queryDeps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}
