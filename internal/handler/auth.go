package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ekarpov/bookvault/internal/model"
	md "github.com/ekarpov/bookvault/pkg/middleware"
)

func (h *Handler) Register(c echo.Context) error {
	var data model.UserCreate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.userSvc.Register(c.Request().Context(), data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c echo.Context) error {
	type credentials struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := h.authSvc.DirectLogin(c.Request().Context(), creds.Username, creds.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, token)
}

// Authorize starts the authorization-code flow: the browser is redirected
// to the provider's login page.
func (h *Handler) Authorize(c echo.Context) error {
	authURL, err := h.authSvc.AuthCodeURL(c.Request().Context(), c.QueryParam("redirect_uri"))
	if err != nil {
		return httpError(err)
	}
	return c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) Callback(c echo.Context) error {
	token, err := h.authSvc.ExchangeCode(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, token)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := h.authSvc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, token)
}

func (h *Handler) Introspect(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.authSvc.Introspect(c.Request().Context(), req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) UserInfo(c echo.Context) error {
	token := strings.TrimPrefix(c.Request().Header.Get(md.AuthorizationHeader), "Bearer ")
	info, err := h.authSvc.UserInfo(c.Request().Context(), token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.authSvc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
