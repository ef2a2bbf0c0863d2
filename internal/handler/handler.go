package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/repository"
	md "github.com/ekarpov/bookvault/pkg/middleware"
	"github.com/ekarpov/bookvault/pkg/validate"
)

const (
	roleEditor = "editor"
	roleAdmin  = "admin"
)

type Handler struct {
	authorSvc AuthorService
	genreSvc  GenreService
	bookSvc   BookService
	userSvc   UserService
	authSvc   AuthService
	log       *zap.Logger
}

func New(
	authorSvc AuthorService,
	genreSvc GenreService,
	bookSvc BookService,
	userSvc UserService,
	authSvc AuthService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		authorSvc: authorSvc,
		genreSvc:  genreSvc,
		bookSvc:   bookSvc,
		userSvc:   userSvc,
		authSvc:   authSvc,
		log:       log,
	}
}

func (h *Handler) NewRouter(authCfg md.AuthConfig) (*echo.Echo, error) {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	authn, err := md.KeycloakAuth(authCfg)
	if err != nil {
		return nil, err
	}
	edit := api.Group("", authn, md.RequireRealmRole(roleEditor))
	admin := api.Group("", authn, md.RequireRealmRole(roleAdmin))

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.GET("/books/:id/history", h.BookHistory)
	api.GET("/download", h.Download)
	edit.POST("/books", h.CreateBook)
	edit.PATCH("/books/:id", h.UpdateBook)
	edit.DELETE("/books/:id", h.DeleteBook)

	api.GET("/authors", h.ListAuthors)
	api.GET("/authors/search", h.SearchAuthors)
	api.GET("/authors/by-name", h.GetAuthorByName)
	api.GET("/authors/:id", h.GetAuthor)
	api.GET("/authors/:id/books", h.ListBooksByAuthor)
	edit.POST("/authors", h.CreateAuthor)
	edit.PATCH("/authors/:id", h.UpdateAuthor)
	edit.DELETE("/authors/:id", h.DeleteAuthor)

	api.GET("/genres", h.ListGenres)
	api.GET("/genres/search", h.SearchGenres)
	api.GET("/genres/by-name", h.GetGenreByName)
	api.GET("/genres/:id", h.GetGenre)
	edit.POST("/genres", h.CreateGenre)
	edit.PATCH("/genres/:id", h.UpdateGenre)
	edit.DELETE("/genres/:id", h.DeleteGenre)

	api.POST("/register", h.Register)
	admin.GET("/users", h.ListUsers)
	admin.GET("/users/:id", h.GetUser)
	admin.PATCH("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)

	api.POST("/auth/login", h.Login)
	api.GET("/auth/authorize", h.Authorize)
	api.GET("/auth/callback", h.Callback)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/introspect", h.Introspect)
	api.GET("/auth/userinfo", h.UserInfo)
	api.POST("/auth/logout", h.Logout)

	return e, nil
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError exposes the service error's message with the mapped status;
// anything outside the service taxonomy stays a bare 500.
func httpError(err error) *echo.HTTPError {
	var se *errs.ServiceError
	if errors.As(err, &se) {
		return echo.NewHTTPError(errs.HTTPStatus(err), se.Msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func listParams(c echo.Context) (repository.ListParams, error) {
	var p repository.ListParams
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return p, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		p.Limit = limit
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return p, echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		p.Offset = offset
	}
	p.OrderBy = c.QueryParam("orderBy")
	return p, nil
}
