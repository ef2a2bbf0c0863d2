package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const authorsTableName = `authors`

var authorCols = []string{"id", "name", "bio"}

type AuthorRepository struct {
	*CRUD[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author]
	db  *sqlx.DB
	log *zap.Logger
}

func NewAuthorRepository(db *sqlx.DB, log *zap.Logger) *AuthorRepository {
	return &AuthorRepository{
		CRUD: NewCRUD[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author](
			db, log, authorsTableName, authorCols),
		db:  db,
		log: log.Named("repo.authors"),
	}
}

// GetByName matches the name exactly, case-sensitive. Returns (nil, nil)
// when no author carries the name.
func (r *AuthorRepository) GetByName(ctx context.Context, name string) (*model.Author, error) {
	query, args, err := qb.Select(authorCols...).
		From(authorsTableName).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_name: build query", err)
	}

	var author model.Author
	err = withRetry(ctx, defaultRetry, "get_by_name", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &author, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *AuthorRepository) SearchInBio(ctx context.Context, term string) ([]model.Author, error) {
	query, args, err := qb.Select(authorCols...).
		From(authorsTableName).
		Where(sq.ILike{"bio": "%" + term + "%"}).
		OrderBy("name asc").
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "search_in_bio: build query", err)
	}

	authors := make([]model.Author, 0)
	err = withRetry(ctx, defaultRetry, "search_in_bio", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &authors, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return authors, nil
}
