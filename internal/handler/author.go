package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ekarpov/bookvault/internal/model"
)

func (h *Handler) CreateAuthor(c echo.Context) error {
	var data model.AuthorCreate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author, err := h.authorSvc.Create(c.Request().Context(), data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, author)
}

func (h *Handler) GetAuthor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	author, err := h.authorSvc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, author)
}

func (h *Handler) ListAuthors(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return err
	}
	var filter model.AuthorFilter
	if err := c.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	authors, err := h.authorSvc.List(c.Request().Context(), &filter, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authors)
}

func (h *Handler) UpdateAuthor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var data model.AuthorUpdate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author, err := h.authorSvc.Update(c.Request().Context(), id, data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, author)
}

func (h *Handler) DeleteAuthor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.authorSvc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAuthorByName(c echo.Context) error {
	author, err := h.authorSvc.GetByName(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, author)
}

func (h *Handler) SearchAuthors(c echo.Context) error {
	authors, err := h.authorSvc.SearchInBio(c.Request().Context(), c.QueryParam("term"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authors)
}
