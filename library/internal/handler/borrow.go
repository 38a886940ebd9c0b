package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/libsys/library/internal/model"
)

// @Summary   Submit a borrow request
// @Tags      borrow-requests
// @Security  BearerAuth
// @Param     request  body      model.SubmitRequest  true  "userId defaults to the caller"
// @Success   201      {object}  model.BorrowRequest
// @Failure   400,403,404,409  {object}  ErrorResponse
// @Router    /borrow-requests [post]
func (h *Handler) SubmitRequest(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req model.SubmitRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	created, err := h.svc.Submit(c.Request().Context(), actor, req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// @Summary   Borrow requests of one user, most recent first
// @Tags      borrow-requests
// @Security  BearerAuth
// @Param     userId  path      string  true  "user id"
// @Success   200     {array}   model.BorrowRequest
// @Failure   403     {object}  ErrorResponse
// @Router    /borrow-requests/user/{userId} [get]
func (h *Handler) ListUserRequests(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	reqs, err := h.svc.ListByUser(c.Request().Context(), actor, c.Param("userId"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, reqs)
}

// @Summary   All borrow requests, most recent first
// @Tags      borrow-requests
// @Security  BearerAuth
// @Param     status  query     string  false  "PENDING, APPROVED or REJECTED"
// @Success   200     {array}   model.BorrowRequest
// @Failure   400,403  {object}  ErrorResponse
// @Router    /borrow-requests/all [get]
func (h *Handler) ListAllRequests(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	reqs, err := h.svc.ListAll(c.Request().Context(), actor, model.RequestStatus(c.QueryParam("status")))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, reqs)
}

// @Summary   Approve a pending request and take one copy
// @Tags      borrow-requests
// @Security  BearerAuth
// @Param     id   path      string  true  "request id"
// @Success   200  {object}  model.BorrowRequest
// @Failure   403,404,409  {object}  ErrorResponse
// @Router    /borrow-requests/{id}/approve [post]
func (h *Handler) ApproveRequest(c echo.Context) error {
	return h.respond(c, h.svc.Approve)
}

// @Summary   Reject a pending request
// @Tags      borrow-requests
// @Security  BearerAuth
// @Param     id   path      string  true  "request id"
// @Success   200  {object}  model.BorrowRequest
// @Failure   403,404,409  {object}  ErrorResponse
// @Router    /borrow-requests/{id}/reject [post]
func (h *Handler) RejectRequest(c echo.Context) error {
	return h.respond(c, h.svc.Reject)
}

type respondFunc func(ctx context.Context, actorID, id string) (model.BorrowRequest, error)

func (h *Handler) respond(c echo.Context, fn respondFunc) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	req, err := fn(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, req)
}
