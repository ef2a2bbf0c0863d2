package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const genresTableName = `genres`

var genreCols = []string{"id", "name", "description"}

type GenreRepository struct {
	*CRUD[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre]
	db  *sqlx.DB
	log *zap.Logger
}

func NewGenreRepository(db *sqlx.DB, log *zap.Logger) *GenreRepository {
	return &GenreRepository{
		CRUD: NewCRUD[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre](
			db, log, genresTableName, genreCols),
		db:  db,
		log: log.Named("repo.genres"),
	}
}

func (r *GenreRepository) GetByName(ctx context.Context, name string) (*model.Genre, error) {
	query, args, err := qb.Select(genreCols...).
		From(genresTableName).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_name: build query", err)
	}

	var genre model.Genre
	err = withRetry(ctx, defaultRetry, "get_by_name", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &genre, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *GenreRepository) SearchInDescription(ctx context.Context, term string) ([]model.Genre, error) {
	query, args, err := qb.Select(genreCols...).
		From(genresTableName).
		Where(sq.ILike{"description": "%" + term + "%"}).
		OrderBy("name asc").
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "search_in_description: build query", err)
	}

	genres := make([]model.Genre, 0)
	err = withRetry(ctx, defaultRetry, "search_in_description", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &genres, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return genres, nil
}
