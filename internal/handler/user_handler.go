package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"usercrud/internal/errors"
	"usercrud/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UserRequest is the body of create, patch and authenticate requests.
// Nil fields were absent (or null) in the JSON body.
type UserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// CountResponse is returned after a delete.
type CountResponse struct {
	Count int64 `json:"count"`
}

func (r UserRequest) emailOrEmpty() string {
	if r.Email == nil {
		return ""
	}
	return *r.Email
}

func (r UserRequest) passwordOrEmpty() string {
	if r.Password == nil {
		return ""
	}
	return *r.Password
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} model.User
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param user body UserRequest true "User payload"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	req, err := bindUserRequest(c)
	if err != nil {
		return err
	}
	created, err := h.svc.CreateUser(c.Request().Context(), req.emailOrEmpty(), req.passwordOrEmpty())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, created)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// PatchUser godoc
// @Summary Partially update user
// @Description Only fields present in the body are changed.
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body UserRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) PatchUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	req, err := bindUserRequest(c)
	if err != nil {
		return err
	}
	user, err := h.svc.PatchUser(c.Request().Context(), id, req.Email, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} CountResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	remaining, err := h.svc.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, CountResponse{Count: remaining})
}

// AuthenticateUser godoc
// @Summary Check user credentials
// @Tags users
// @Accept json
// @Produce json
// @Param credentials body UserRequest true "Email and password"
// @Success 200 {object} auth.Result
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/authenticate [post]
func (h *UserHandler) AuthenticateUser(c echo.Context) error {
	req, err := bindUserRequest(c)
	if err != nil {
		return err
	}
	result, err := h.svc.Authenticate(c.Request().Context(), req.emailOrEmpty(), req.passwordOrEmpty())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid id",
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}

func bindUserRequest(c echo.Context) (UserRequest, error) {
	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	return req, nil
}

func mapError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
