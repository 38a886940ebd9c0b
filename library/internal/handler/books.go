package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

// ListBooks godoc
// @Summary      List books
// @Tags         books
// @Produce      json
// @Param        category   query  string  false  "category, All for any"
// @Param        search     query  string  false  "title, author or isbn fragment"
// @Param        available  query  bool    false  "only books with free copies"
// @Param        page       query  int     false  "page, from 1"
// @Param        size       query  int     false  "page size"
// @Success      200  {object}  model.ListBooks
// @Failure      400  {object}  ErrorResponse
// @Router       /books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	filter := model.BookFilter{
		Category: model.Category(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
	}
	var err error
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if filter.Page, err = strconv.Atoi(pageParam); err != nil {
			return h.fail(errs.Validation("page is invalid"))
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if filter.Size, err = strconv.Atoi(sizeParam); err != nil {
			return h.fail(errs.Validation("size is invalid"))
		}
	}
	if availableParam := c.QueryParam("available"); availableParam != "" {
		if filter.Available, err = strconv.ParseBool(availableParam); err != nil {
			return h.fail(errs.Validation("available is invalid"))
		}
	}

	books, err := h.svc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, books)
}

// GetBook godoc
// @Summary      Get book by ISBN
// @Tags         books
// @Produce      json
// @Param        isbn  path  string  true  "ISBN"
// @Success      200  {object}  model.Book
// @Failure      404  {object}  ErrorResponse
// @Router       /books/{isbn} [get]
func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.svc.GetBook(c.Request().Context(), c.Param("isbn"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, book)
}

// CreateBook godoc
// @Summary      Add a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        book  body  model.CreateBookRequest  true  "book"
// @Success      201  {object}  model.Book
// @Failure      400,403,409  {object}  ErrorResponse
// @Router       /books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req model.CreateBookRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	book, err := h.svc.CreateBook(c.Request().Context(), actor, req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// UpdateBook godoc
// @Summary      Patch a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        isbn   path  string           true  "ISBN"
// @Param        patch  body  model.BookPatch  true  "fields to change"
// @Success      200  {object}  model.Book
// @Failure      400,403,404,409  {object}  ErrorResponse
// @Router       /books/{isbn} [put]
func (h *Handler) UpdateBook(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var patch model.BookPatch
	if err := h.bind(c, &patch); err != nil {
		return err
	}
	book, err := h.svc.UpdateBook(c.Request().Context(), actor, c.Param("isbn"), patch)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, book)
}

// DeleteBook godoc
// @Summary      Remove a book
// @Tags         books
// @Security     BearerAuth
// @Param        isbn  path  string  true  "ISBN"
// @Success      204
// @Failure      403,404  {object}  ErrorResponse
// @Router       /books/{isbn} [delete]
func (h *Handler) DeleteBook(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBook(c.Request().Context(), actor, c.Param("isbn")); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
