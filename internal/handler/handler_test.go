package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/handler"
	service_mocks "github.com/ekarpov/bookvault/internal/handler/mocks"
	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/internal/repository"
	"github.com/ekarpov/bookvault/pkg/validate"
)

func TestHandler_GetAuthor(t *testing.T) {
	t.Parallel()

	authorID := uuid.MustParse("9f0f4e3e-5ad3-4f2f-8f7d-2ab0c1b7a001")
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockAuthorService)

	var tests = []struct {
		name         string
		path         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			path: "/api/v1/authors/" + authorID.String(),
			mockBehavior: func(r *service_mocks.MockAuthorService) {
				r.EXPECT().
					Get(gomock.Any(), authorID).
					Return(&model.Author{ID: authorID, Name: "Leo Tolstoy"}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":"9f0f4e3e-5ad3-4f2f-8f7d-2ab0c1b7a001","name":"Leo Tolstoy"}`,
			},
		},
		{
			name: "err. not found",
			path: "/api/v1/authors/" + authorID.String(),
			mockBehavior: func(r *service_mocks.MockAuthorService) {
				r.EXPECT().
					Get(gomock.Any(), authorID).
					Return(nil, errs.NotFound("author not found"))
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"author not found"}`,
			},
		},
		{
			name:         "err. bad id",
			path:         "/api/v1/authors/not-a-uuid",
			mockBehavior: func(r *service_mocks.MockAuthorService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid id"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			authorSvc := service_mocks.NewMockAuthorService(c)
			tt.mockBehavior(authorSvc)
			h := newTestHandler(t, authorSvc, nil, nil, nil)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/api/v1/authors/:id", h.GetAuthor)

			r := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()

	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockBookService)

	bookID := uuid.MustParse("83575e12-7ce0-48ee-9931-51919ff3c9ee")
	authorID := uuid.MustParse("f7cdc58f-2caf-4b15-9727-f89dcc629b27")

	var tests = []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:  "ok",
			query: "?limit=10",
			mockBehavior: func(r *service_mocks.MockBookService) {
				r.EXPECT().
					List(gomock.Any(), gomock.Any(), repository.ListParams{Limit: 10}).
					Return([]model.Book{
						{ID: bookID, Title: "War and Peace", AuthorID: authorID, Year: 1869},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"id":"83575e12-7ce0-48ee-9931-51919ff3c9ee","title":"War and Peace","authorId":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","year":1869,"isPublished":false,"createdAt":"0001-01-01T00:00:00Z"}]`,
			},
		},
		{
			name:  "err. limit out of bounds",
			query: "?limit=5000",
			mockBehavior: func(r *service_mocks.MockBookService) {
				r.EXPECT().
					List(gomock.Any(), gomock.Any(), repository.ListParams{Limit: 5000}).
					Return(nil, errs.Validation("limit must be between 1 and 1000"))
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"limit must be between 1 and 1000"}`,
			},
		},
		{
			name:         "err. limit not a number",
			query:        "?limit=abc",
			mockBehavior: func(r *service_mocks.MockBookService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid limit"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			bookSvc := service_mocks.NewMockBookService(c)
			tt.mockBehavior(bookSvc)
			h := newTestHandler(t, nil, nil, bookSvc, nil)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/api/v1/books", h.ListBooks)

			r := httptest.NewRequest(http.MethodGet, "/api/v1/books"+tt.query, nil)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Download(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()
	bookSvc := service_mocks.NewMockBookService(c)
	bookSvc.EXPECT().
		Download(gomock.Any(), "tok-1").
		Return(&model.FileContent{
			Filename:    "book.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF"),
		}, nil)
	bookSvc.EXPECT().
		Download(gomock.Any(), "tok-used").
		Return(nil, errs.NotFound("download token is expired or already used"))
	h := newTestHandler(t, nil, nil, bookSvc, nil)

	e := echo.New()
	e.GET("/api/v1/download", h.Download)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download?token=tok-1", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get(echo.HeaderContentType))
	require.Contains(t, w.Header().Get(echo.HeaderContentDisposition), "book.pdf")
	require.Equal(t, "%PDF", w.Body.String())

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download?token=tok-used", http.NoBody))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()
	userSvc := service_mocks.NewMockUserService(c)
	userSvc.EXPECT().
		Register(gomock.Any(), model.UserCreate{
			Username: "reader", Email: "reader@example.com", Password: "s3cret-pass",
		}).
		Return(model.User{Username: "reader", Email: "reader@example.com", IsActive: true}, nil)
	h := newTestHandler(t, nil, nil, nil, userSvc)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/api/v1/register", h.Register)

	body := `{"username":"reader","email":"reader@example.com","password":"s3cret-pass"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "password")
}

func newTestHandler(
	t *testing.T,
	authorSvc handler.AuthorService,
	genreSvc handler.GenreService,
	bookSvc handler.BookService,
	userSvc handler.UserService,
) *handler.Handler {
	t.Helper()
	return handler.New(authorSvc, genreSvc, bookSvc, userSvc, nil, zap.NewExample().Named("test"))
}
