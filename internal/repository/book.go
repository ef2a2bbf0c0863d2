package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const booksTableName = `books`

var bookCols = []string{"id", "title", "description", "author_id", "genre_id", "year", "is_published", "created_at"}

type BookRepository struct {
	*CRUD[model.BookCreate, model.BookUpdate, model.BookFilter, model.Book]
	db  *sqlx.DB
	log *zap.Logger
}

func NewBookRepository(db *sqlx.DB, log *zap.Logger) *BookRepository {
	return &BookRepository{
		CRUD: NewCRUD[model.BookCreate, model.BookUpdate, model.BookFilter, model.Book](
			db, log, booksTableName, bookCols),
		db:  db,
		log: log.Named("repo.books"),
	}
}

func (r *BookRepository) GetByTitle(ctx context.Context, title string) (*model.Book, error) {
	query, args, err := qb.Select(bookCols...).
		From(booksTableName).
		Where(sq.Eq{"title": title}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_title: build query", err)
	}

	var book model.Book
	err = withRetry(ctx, defaultRetry, "get_by_title", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &book, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *BookRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Book, error) {
	query, args, err := qb.Select(bookCols...).
		From(booksTableName).
		Where(sq.Eq{"author_id": authorID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "list_by_author: build query", err)
	}

	books := make([]model.Book, 0)
	err = withRetry(ctx, defaultRetry, "list_by_author", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &books, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}
