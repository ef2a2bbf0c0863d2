package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/internal/storage"
)

const coverURLTTL = time.Hour

type BookRepo interface {
	Repo[model.BookCreate, model.BookUpdate, model.BookFilter, model.Book]
	GetByTitle(ctx context.Context, title string) (*model.Book, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Book, error)
}

type BookFileRepo interface {
	Create(ctx context.Context, data model.BookFileCreate) (model.BookFile, error)
	GetByBook(ctx context.Context, bookID uuid.UUID) ([]model.BookFile, error)
	GetByBookAndType(ctx context.Context, bookID uuid.UUID, ft model.FileType) (*model.BookFile, error)
	Replace(ctx context.Context, data model.BookFileCreate) (model.BookFile, error)
}

type HistoryRepo interface {
	Create(ctx context.Context, data model.HistoryCreate) (model.BookHistory, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.BookHistory, error)
}

// FileStorage is the object-store surface the book workflow drives.
type FileStorage interface {
	Upload(ctx context.Context, key string, content []byte, contentType string, metadata map[string]string) error
	Download(ctx context.Context, key string) (*model.FileContent, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error)
}

// DownloadTokens issues and redeems one-time pdf download tokens.
type DownloadTokens interface {
	IssueDownloadToken(ctx context.Context, storageKey string) (string, error)
	RedeemDownloadToken(ctx context.Context, token string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.BookEvent) error
}

// refChecker is the slice of another entity's repository used to verify a
// foreign key before insert.
type refChecker interface {
	Exists(ctx context.Context, criteria map[string]any) (bool, error)
}

// BookService orchestrates the book workflow: rows, objects, audit history
// and events. Creating a book with files is a multi-step operation; when a
// later step fails, every earlier step is compensated so no orphan row or
// orphan object survives.
type BookService struct {
	*Service[model.BookCreate, model.BookUpdate, model.BookFilter, model.Book]
	books   BookRepo
	files   BookFileRepo
	history HistoryRepo
	authors refChecker
	genres  refChecker
	storage FileStorage
	tokens  DownloadTokens
	events  EventPublisher
	log     *zap.Logger
}

func NewBookService(
	books BookRepo,
	files BookFileRepo,
	history HistoryRepo,
	authors refChecker,
	genres refChecker,
	store FileStorage,
	tokens DownloadTokens,
	events EventPublisher,
	log *zap.Logger,
) *BookService {
	return &BookService{
		Service: NewService[model.BookCreate, model.BookUpdate, model.BookFilter, model.Book](books, log, "book"),
		books:   books,
		files:   files,
		history: history,
		authors: authors,
		genres:  genres,
		storage: store,
		tokens:  tokens,
		events:  events,
		log:     log.Named("service").With(zap.String("entity", "book")),
	}
}

// CreateWithFiles creates the book row and uploads its payloads. Both files
// are required at creation. On any failure the already-completed steps are
// rolled back: uploaded objects are removed and the book row is deleted.
func (s *BookService) CreateWithFiles(
	ctx context.Context, userID uuid.UUID, data model.BookCreate, cover, pdf *model.File,
) (*model.BookDetail, error) {
	if err := validate.Struct(data); err != nil {
		return nil, errs.NewService(errs.ServiceValidation, "create book", err)
	}
	if err := validateYear(data.Year); err != nil {
		return nil, err
	}
	if cover == nil || pdf == nil {
		return nil, errs.Validation("both cover and pdf files are required")
	}
	if err := s.validateFiles(cover, pdf); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, data.AuthorID, data.GenreID); err != nil {
		return nil, err
	}

	book, err := s.books.Create(ctx, data)
	if err != nil {
		return nil, errs.ServiceFromRepo("create book", err)
	}

	fileRows, err := s.attachFiles(ctx, book.ID, cover, pdf)
	if err != nil {
		if leftovers := s.compensateCreate(ctx, book.ID); len(leftovers) > 0 {
			return nil, errors.Wrapf(err, "compensation incomplete, orphaned: %s", strings.Join(leftovers, ", "))
		}
		return nil, err
	}

	s.record(ctx, model.HistoryCreate{
		BookID:    book.ID,
		UserID:    userID,
		Action:    model.ActionCreate,
		NewValues: bookSnapshot(book),
	})

	return &model.BookDetail{Book: book, Files: fileRows}, nil
}

// GetDetail returns the book with its files, a presigned cover URL and a
// one-time download token for the pdf.
func (s *BookService) GetDetail(ctx context.Context, id uuid.UUID) (*model.BookDetail, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fileRows, err := s.files.GetByBook(ctx, id)
	if err != nil {
		return nil, errs.ServiceFromRepo("get book files", err)
	}

	detail := &model.BookDetail{Book: *book, Files: fileRows}
	for _, f := range fileRows {
		switch f.FileType {
		case model.FileTypeCover:
			url, err := s.storage.PresignedURL(ctx, f.StorageKey, coverURLTTL, f.OriginalName)
			if err != nil {
				return nil, errs.ServiceFromStorage("presign cover", err)
			}
			detail.CoverURL = url
		case model.FileTypePDF:
			token, err := s.tokens.IssueDownloadToken(ctx, f.StorageKey)
			if err != nil {
				return nil, errs.NewService(errs.ServiceInternal, "issue download token", err)
			}
			detail.DownloadToken = token
		}
	}
	return detail, nil
}

// UpdateTracked patches the book row, optionally replaces its files, and
// appends an update history entry carrying both the old and new snapshots.
func (s *BookService) UpdateTracked(
	ctx context.Context, userID uuid.UUID, id uuid.UUID, data model.BookUpdate, cover, pdf *model.File,
) (*model.Book, error) {
	if err := validate.Struct(data); err != nil {
		return nil, errs.NewService(errs.ServiceValidation, "update book", err)
	}
	if data.Year != nil {
		if err := validateYear(*data.Year); err != nil {
			return nil, err
		}
	}
	if err := s.validateFiles(cover, pdf); err != nil {
		return nil, err
	}
	authorID := uuid.Nil
	if data.AuthorID != nil {
		authorID = *data.AuthorID
	}
	if err := s.checkRefsPartial(ctx, data.AuthorID != nil, authorID, data.GenreID); err != nil {
		return nil, err
	}

	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.books.Update(ctx, id, data)
	if err != nil {
		return nil, errs.ServiceFromRepo("update book", err)
	}
	if updated == nil {
		return nil, errs.NotFound("book not found")
	}

	if _, err := s.attachFilesReplace(ctx, id, cover, pdf); err != nil {
		return nil, err
	}

	s.record(ctx, model.HistoryCreate{
		BookID:    id,
		UserID:    userID,
		Action:    model.ActionUpdate,
		OldValues: bookSnapshot(*old),
		NewValues: bookSnapshot(*updated),
	})

	return updated, nil
}

// DeleteCascade removes the book's objects first, then the row; file rows go
// with the row. An object already gone from storage is not an error: the
// outcome the caller asked for is "not there".
func (s *BookService) DeleteCascade(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	keys, err := s.storage.List(ctx, model.ObjectPrefix(id))
	if err != nil {
		return errs.ServiceFromStorage("list book objects", err)
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil && !errs.IsStorage(err, errs.StorageNotFound) {
			return errs.ServiceFromStorage("delete book object", err)
		}
	}

	deleted, err := s.books.Delete(ctx, id)
	if err != nil {
		return errs.ServiceFromRepo("delete book", err)
	}
	if !deleted {
		return errs.NotFound("book not found")
	}

	s.record(ctx, model.HistoryCreate{
		BookID:    id,
		UserID:    userID,
		Action:    model.ActionDelete,
		OldValues: bookSnapshot(*book),
	})
	return nil
}

func (s *BookService) History(ctx context.Context, bookID uuid.UUID) ([]model.BookHistory, error) {
	entries, err := s.history.ListByBook(ctx, bookID)
	if err != nil {
		return nil, errs.ServiceFromRepo("book history", err)
	}
	return entries, nil
}

func (s *BookService) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Book, error) {
	books, err := s.books.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, errs.ServiceFromRepo("list books by author", err)
	}
	return books, nil
}

// Download redeems a one-time token and streams the object it was bound to.
func (s *BookService) Download(ctx context.Context, token string) (*model.FileContent, error) {
	if token == "" {
		return nil, errs.Validation("download token is required")
	}
	key, err := s.tokens.RedeemDownloadToken(ctx, token)
	if err != nil {
		if errs.IsService(err, errs.ServiceNotFound) {
			return nil, err
		}
		return nil, errs.NewService(errs.ServiceInternal, "redeem download token", err)
	}
	content, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, errs.ServiceFromStorage("download book file", err)
	}
	return content, nil
}

// validateYear bounds the upper end; the tag on the schema holds the lower.
// The bound is dynamic (next calendar year), so a tag cannot express it.
func validateYear(year int) error {
	if year > time.Now().Year()+1 {
		return errs.Validation("year is in the future")
	}
	return nil
}

func (s *BookService) validateFiles(cover, pdf *model.File) error {
	if cover != nil {
		if len(cover.Content) == 0 {
			return errs.Validation("cover file is empty")
		}
		if !strings.HasPrefix(cover.ContentType, "image/") {
			return errs.Validation("cover must be an image")
		}
	}
	if pdf != nil {
		if len(pdf.Content) == 0 {
			return errs.Validation("book payload is empty")
		}
		if pdf.ContentType != "application/pdf" {
			return errs.Validation("book payload must be a pdf")
		}
	}
	return nil
}

func (s *BookService) checkRefs(ctx context.Context, authorID uuid.UUID, genreID *uuid.UUID) error {
	return s.checkRefsPartial(ctx, true, authorID, genreID)
}

func (s *BookService) checkRefsPartial(ctx context.Context, checkAuthor bool, authorID uuid.UUID, genreID *uuid.UUID) error {
	if checkAuthor {
		ok, err := s.authors.Exists(ctx, map[string]any{"id": authorID})
		if err != nil {
			return errs.ServiceFromRepo("check author", err)
		}
		if !ok {
			return errs.NotFound("author does not exist")
		}
	}
	if genreID != nil {
		ok, err := s.genres.Exists(ctx, map[string]any{"id": *genreID})
		if err != nil {
			return errs.ServiceFromRepo("check genre", err)
		}
		if !ok {
			return errs.NotFound("genre does not exist")
		}
	}
	return nil
}

// attachFiles uploads both payloads concurrently and inserts their rows.
// Returns the created rows, or the first error.
func (s *BookService) attachFiles(ctx context.Context, bookID uuid.UUID, cover, pdf *model.File) ([]model.BookFile, error) {
	return s.storeFiles(ctx, bookID, cover, pdf, s.files.Create)
}

// attachFilesReplace is attachFiles for updates: rows go through Replace so
// an existing file of the same kind is swapped, not duplicated. When the new
// payload lands under a different key (extension changed), the superseded
// object is removed first.
func (s *BookService) attachFilesReplace(ctx context.Context, bookID uuid.UUID, cover, pdf *model.File) ([]model.BookFile, error) {
	for kind, f := range map[model.FileType]*model.File{model.FileTypeCover: cover, model.FileTypePDF: pdf} {
		if f == nil {
			continue
		}
		existing, err := s.files.GetByBookAndType(ctx, bookID, kind)
		if err != nil {
			return nil, errs.ServiceFromRepo("lookup existing file", err)
		}
		if existing == nil || existing.StorageKey == model.ObjectKey(bookID, kind, f.Filename) {
			continue
		}
		if err := s.storage.Delete(ctx, existing.StorageKey); err != nil && !errs.IsStorage(err, errs.StorageNotFound) {
			return nil, errs.ServiceFromStorage("delete superseded object", err)
		}
	}
	return s.storeFiles(ctx, bookID, cover, pdf, s.files.Replace)
}

func (s *BookService) storeFiles(
	ctx context.Context, bookID uuid.UUID, cover, pdf *model.File,
	insert func(context.Context, model.BookFileCreate) (model.BookFile, error),
) ([]model.BookFile, error) {
	type payload struct {
		file *model.File
		kind model.FileType
	}
	payloads := make([]payload, 0, 2)
	if cover != nil {
		payloads = append(payloads, payload{cover, model.FileTypeCover})
	}
	if pdf != nil {
		payloads = append(payloads, payload{pdf, model.FileTypePDF})
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	rows := make([]model.BookFile, len(payloads))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range payloads {
		i, p := i, p
		g.Go(func() error {
			key := model.ObjectKey(bookID, p.kind, p.file.Filename)
			metadata, err := storage.SanitizeMetadata(p.file.Metadata)
			if err != nil {
				return errs.NewService(errs.ServiceValidation, "file metadata", err)
			}
			if err := s.storage.Upload(gctx, key, p.file.Content, p.file.ContentType, metadata); err != nil {
				return errs.ServiceFromStorage("upload "+string(p.kind), err)
			}
			row, err := insert(gctx, model.BookFileCreate{
				BookID:       bookID,
				StorageKey:   key,
				FileType:     p.kind,
				OriginalName: p.file.Filename,
				SizeBytes:    p.file.Size(),
				MimeType:     p.file.ContentType,
			})
			if err != nil {
				return errs.ServiceFromRepo("insert file row", err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// compensateCreate unwinds a failed CreateWithFiles: every object uploaded
// under the book's prefix is removed, then the book row (its file rows
// cascade). Each unfinished step comes back in leftovers so the caller can
// name the orphaned resources in its error; cleanup failures never mask the
// original error.
func (s *BookService) compensateCreate(ctx context.Context, bookID uuid.UUID) (leftovers []string) {
	keys, err := s.storage.List(ctx, model.ObjectPrefix(bookID))
	if err != nil {
		s.log.Error("compensate: list objects failed", zap.String("book_id", bookID.String()), zap.Error(err))
		leftovers = append(leftovers, "objects under "+model.ObjectPrefix(bookID))
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil && !errs.IsStorage(err, errs.StorageNotFound) {
			s.log.Error("compensate: delete object failed", zap.String("key", key), zap.Error(err))
			leftovers = append(leftovers, "object "+key)
		}
	}
	if _, err := s.books.Delete(ctx, bookID); err != nil {
		s.log.Error("compensate: delete book row failed", zap.String("book_id", bookID.String()), zap.Error(err))
		leftovers = append(leftovers, "book row "+bookID.String())
	}
	return leftovers
}

// record appends a history entry and publishes the matching event. Both are
// audit side channels of an already-committed mutation, so failures are
// logged, not returned.
func (s *BookService) record(ctx context.Context, entry model.HistoryCreate) {
	if _, err := s.history.Create(ctx, entry); err != nil {
		s.log.Error("history append failed",
			zap.String("book_id", entry.BookID.String()),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, model.BookEvent{
		BookID:    entry.BookID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		OldValues: entry.OldValues,
		NewValues: entry.NewValues,
		At:        time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("book event publish failed", zap.String("book_id", entry.BookID.String()), zap.Error(err))
	}
}

func bookSnapshot(b model.Book) model.Snapshot {
	snap := model.Snapshot{
		"title":        b.Title,
		"author_id":    b.AuthorID.String(),
		"year":         b.Year,
		"is_published": b.IsPublished,
	}
	if b.Description != nil {
		snap["description"] = *b.Description
	}
	if b.GenreID != nil {
		snap["genre_id"] = b.GenreID.String()
	}
	return snap
}
