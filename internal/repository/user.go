package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const usersTableName = `users`

var userCols = []string{"id", "username", "email", "full_name", "password_hash", "roles", "is_active"}

type UserRepository struct {
	*CRUD[model.UserInsert, model.UserUpdate, model.UserFilter, model.User]
	db  *sqlx.DB
	log *zap.Logger
}

func NewUserRepository(db *sqlx.DB, log *zap.Logger) *UserRepository {
	return &UserRepository{
		CRUD: NewCRUD[model.UserInsert, model.UserUpdate, model.UserFilter, model.User](
			db, log, usersTableName, userCols),
		db:  db,
		log: log.Named("repo.users"),
	}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query, args, err := qb.Select(userCols...).
		From(usersTableName).
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_username: build query", err)
	}

	var user model.User
	err = withRetry(ctx, defaultRetry, "get_by_username", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &user, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
