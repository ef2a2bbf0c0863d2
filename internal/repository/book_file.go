package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const bookFilesTableName = `book_files`

var bookFileCols = []string{"id", "book_id", "storage_key", "file_type", "original_name", "size_bytes", "mime_type", "created_at"}

// BookFileRepository does not reuse the generic CRUD: file rows are never
// patched, they are created, replaced wholesale or deleted.
type BookFileRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewBookFileRepository(db *sqlx.DB, log *zap.Logger) *BookFileRepository {
	return &BookFileRepository{
		db:  db,
		log: log.Named("repo.book_files"),
	}
}

func (r *BookFileRepository) Create(ctx context.Context, data model.BookFileCreate) (model.BookFile, error) {
	query, args, err := qb.Insert(bookFilesTableName).
		SetMap(data.Values()).
		Suffix("RETURNING " + strings.Join(bookFileCols, ", ")).
		ToSql()
	if err != nil {
		return model.BookFile{}, errs.NewRepo(errs.RepoOperation, "create: build query", err)
	}

	var file model.BookFile
	err = withRetry(ctx, defaultRetry, "create", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &file, query, args...)
	})
	return file, err
}

func (r *BookFileRepository) GetByBook(ctx context.Context, bookID uuid.UUID) ([]model.BookFile, error) {
	query, args, err := qb.Select(bookFileCols...).
		From(bookFilesTableName).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("created_at asc").
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_book: build query", err)
	}

	files := make([]model.BookFile, 0)
	err = withRetry(ctx, defaultRetry, "get_by_book", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &files, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *BookFileRepository) GetByBookAndType(ctx context.Context, bookID uuid.UUID, ft model.FileType) (*model.BookFile, error) {
	query, args, err := qb.Select(bookFileCols...).
		From(bookFilesTableName).
		Where(sq.Eq{"book_id": bookID, "file_type": ft}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_book_and_type: build query", err)
	}

	var file model.BookFile
	err = withRetry(ctx, defaultRetry, "get_by_book_and_type", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &file, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *BookFileRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args, err := qb.Delete(bookFilesTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, errs.NewRepo(errs.RepoOperation, "delete: build query", err)
	}

	var affected int64
	err = withRetry(ctx, defaultRetry, "delete", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Replace swaps the authoritative file of one kind for a book in a single
// transaction, so concurrent updates of the same slot cannot interleave a
// delete with a stale insert.
func (r *BookFileRepository) Replace(ctx context.Context, data model.BookFileCreate) (model.BookFile, error) {
	delQuery, delArgs, err := qb.Delete(bookFilesTableName).
		Where(sq.Eq{"book_id": data.BookID, "file_type": data.FileType}).
		ToSql()
	if err != nil {
		return model.BookFile{}, errs.NewRepo(errs.RepoOperation, "replace: build query", err)
	}
	insQuery, insArgs, err := qb.Insert(bookFilesTableName).
		SetMap(data.Values()).
		Suffix("RETURNING " + strings.Join(bookFileCols, ", ")).
		ToSql()
	if err != nil {
		return model.BookFile{}, errs.NewRepo(errs.RepoOperation, "replace: build query", err)
	}

	var file model.BookFile
	err = withRetry(ctx, defaultRetry, "replace", func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &file, insQuery, insArgs...); err != nil {
			return err
		}
		return tx.Commit()
	})
	return file, err
}
