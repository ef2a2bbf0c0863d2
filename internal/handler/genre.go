package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ekarpov/bookvault/internal/model"
)

func (h *Handler) CreateGenre(c echo.Context) error {
	var data model.GenreCreate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	genre, err := h.genreSvc.Create(c.Request().Context(), data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, genre)
}

func (h *Handler) GetGenre(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	genre, err := h.genreSvc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genre)
}

func (h *Handler) ListGenres(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return err
	}
	var filter model.GenreFilter
	if err := c.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	genres, err := h.genreSvc.List(c.Request().Context(), &filter, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genres)
}

func (h *Handler) UpdateGenre(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var data model.GenreUpdate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	genre, err := h.genreSvc.Update(c.Request().Context(), id, data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genre)
}

func (h *Handler) DeleteGenre(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.genreSvc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetGenreByName(c echo.Context) error {
	genre, err := h.genreSvc.GetByName(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genre)
}

func (h *Handler) SearchGenres(c echo.Context) error {
	genres, err := h.genreSvc.SearchInDescription(c.Request().Context(), c.QueryParam("term"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, genres)
}
