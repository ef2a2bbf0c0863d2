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

const bookHistoryTableName = `book_history`

var historyCols = []string{"id", "book_id", "user_id", "action", "changed_at", "old_values", "new_values"}

// HistoryRepository is append-only: entries are created and listed, never
// updated or deleted.
type HistoryRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewHistoryRepository(db *sqlx.DB, log *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.Named("repo.book_history"),
	}
}

func (r *HistoryRepository) Create(ctx context.Context, data model.HistoryCreate) (model.BookHistory, error) {
	query, args, err := qb.Insert(bookHistoryTableName).
		SetMap(data.Values()).
		Suffix("RETURNING " + strings.Join(historyCols, ", ")).
		ToSql()
	if err != nil {
		return model.BookHistory{}, errs.NewRepo(errs.RepoOperation, "create: build query", err)
	}

	var entry model.BookHistory
	err = withRetry(ctx, defaultRetry, "create", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &entry, query, args...)
	})
	return entry, err
}

func (r *HistoryRepository) ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.BookHistory, error) {
	query, args, err := qb.Select(historyCols...).
		From(bookHistoryTableName).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("changed_at desc").
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "list_by_book: build query", err)
	}

	entries := make([]model.BookHistory, 0)
	err = withRetry(ctx, defaultRetry, "list_by_book", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &entries, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
