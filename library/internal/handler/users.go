package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/libsys/library/internal/model"
)

// Login godoc
// @Summary      Exchange credentials for an access token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        credentials  body  model.LoginRequest  true  "email and password"
// @Success      200  {object}  model.LoginResponse
// @Failure      400,401,403  {object}  ErrorResponse
// @Router       /users/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Authenticate(c.Request().Context(), req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// @Summary   List users
// @Tags      users
// @Security  BearerAuth
// @Success   200  {array}   model.User
// @Failure   403  {object}  ErrorResponse
// @Router    /users [get]
func (h *Handler) ListUsers(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	users, err := h.svc.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, users)
}

// @Summary   Get user
// @Tags      users
// @Security  BearerAuth
// @Param     id   path      string  true  "user id"
// @Success   200  {object}  model.User
// @Failure   403,404  {object}  ErrorResponse
// @Router    /users/{id} [get]
func (h *Handler) GetUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, user)
}

// @Summary   Create user
// @Tags      users
// @Security  BearerAuth
// @Param     user  body      model.CreateUserRequest  true  "account"
// @Success   201   {object}  model.User
// @Failure   400,403,409  {object}  ErrorResponse
// @Router    /users [post]
func (h *Handler) CreateUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req model.CreateUserRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.CreateUser(c.Request().Context(), actor, req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// @Summary   Update user
// @Tags      users
// @Security  BearerAuth
// @Param     id     path      string           true  "user id"
// @Param     patch  body      model.UserPatch  true  "fields to change"
// @Success   200    {object}  model.User
// @Failure   400,403,404,409  {object}  ErrorResponse
// @Router    /users/{id} [put]
func (h *Handler) UpdateUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var patch model.UserPatch
	if err := h.bind(c, &patch); err != nil {
		return err
	}
	user, err := h.svc.UpdateUser(c.Request().Context(), actor, c.Param("id"), patch)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, user)
}

// @Summary   Delete user
// @Tags      users
// @Security  BearerAuth
// @Param     id   path  string  true  "user id"
// @Success   204
// @Failure   403,404,409  {object}  ErrorResponse
// @Router    /users/{id} [delete]
func (h *Handler) DeleteUser(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), actor, c.Param("id")); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
