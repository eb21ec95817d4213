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

// UserHandler handles user endpoints.
type UserHandler struct {
	commands  *service.CommandBus
	queries   *service.QueryBus
	deps      service.CommandDeps
	queryDeps service.QueryDeps
	validator *validator.Validate
}

// NewUserHandler creates a new user handler.
func NewUserHandler(commands *service.CommandBus, queries *service.QueryBus, deps service.CommandDeps, queryDeps service.QueryDeps, validate *validator.Validate) *UserHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &UserHandler{commands: commands, queries: queries, deps: deps, queryDeps: queryDeps, validator: validate}
}

// Create godoc
// @Summary Create user
// @Description Create a user without a password
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope{data=models.UserInfo}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, h.validator, &req, "invalid user payload") {
		return
	}

	user, err := bus.DispatchAs[*models.User](c.Request.Context(), h.commands, service.CreateUser{Name: req.Name, Email: req.Email}, h.deps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, models.NewUserInfo(user))
}

// Get godoc
// @Summary Get user
// @Description Get a user by id
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope{data=models.UserInfo}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := bus.DispatchAs[*models.User](c.Request.Context(), h.queries, service.GetUser{UserID: c.Param("id")}, h.queryDeps)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}
