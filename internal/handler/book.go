package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ekarpov/bookvault/internal/model"
	md "github.com/ekarpov/bookvault/pkg/middleware"
)

// maxUploadBytes bounds a single file part.
const maxUploadBytes = 64 << 20 // 64 MB

func (h *Handler) CreateBook(c echo.Context) error {
	userID, err := md.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var data model.BookCreate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cover, err := formFile(c, "cover")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pdf, err := formFile(c, "pdf")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	detail, err := h.bookSvc.CreateWithFiles(c.Request().Context(), userID, data, cover, pdf)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	detail, err := h.bookSvc.GetDetail(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListBooks(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return err
	}
	var filter model.BookFilter
	if err := c.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	books, err := h.bookSvc.List(c.Request().Context(), &filter, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	userID, err := md.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var data model.BookUpdate
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cover, err := formFile(c, "cover")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pdf, err := formFile(c, "pdf")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.bookSvc.UpdateTracked(c.Request().Context(), userID, id, data, cover, pdf)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	userID, err := md.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.bookSvc.DeleteCascade(c.Request().Context(), userID, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BookHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entries, err := h.bookSvc.History(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListBooksByAuthor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	books, err := h.bookSvc.ListByAuthor(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// Download streams the object behind a one-time token.
func (h *Handler) Download(c echo.Context) error {
	content, err := h.bookSvc.Download(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return httpError(err)
	}
	contentType := content.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if content.Filename != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+content.Filename+`"`)
	}
	return c.Blob(http.StatusOK, contentType, content.Content)
}

// formFile reads one optional multipart file part. A missing part is not an
// error; a part larger than maxUploadBytes is.
func formFile(c echo.Context, name string) (*model.File, error) {
	fh, err := c.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Size > maxUploadBytes {
		return nil, errors.Errorf("file %q exceeds the %d byte limit", fh.Filename, maxUploadBytes)
	}
	return readFile(fh)
}

func readFile(fh *multipart.FileHeader) (*model.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	return &model.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     content,
	}, nil
}
