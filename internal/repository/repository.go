package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/pkg/retry"
)

// Schema is a create or update payload: Values returns the column -> value
// map of the fields that were explicitly set.
type Schema interface {
	Values() map[string]any
}

// Filter builds the where conditions for list queries.
type Filter interface {
	Conds() []sq.Sqlizer
}

type ListParams struct {
	Limit   int
	Offset  int
	OrderBy string
}

const DefaultLimit = 100

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var defaultRetry = retry.Policy{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// CRUD implements the generic persistence contract for one table. Every
// operation passes through the error-translating retry boundary: callers
// never observe driver error types, and connection-class failures are
// retried with linear backoff before surfacing.
type CRUD[C Schema, U Schema, F Filter, R any] struct {
	db     *sqlx.DB
	log    *zap.Logger
	table  string
	cols   []string
	policy retry.Policy
}

func NewCRUD[C Schema, U Schema, F Filter, R any](
	db *sqlx.DB, log *zap.Logger, table string, cols []string,
) *CRUD[C, U, F, R] {
	return &CRUD[C, U, F, R]{
		db:     db,
		log:    log.Named("repo").With(zap.String("table", table)),
		table:  table,
		cols:   cols,
		policy: defaultRetry,
	}
}

// withRetry is the error-translating retry boundary shared by the generic
// CRUD and the bespoke entity queries.
func withRetry(ctx context.Context, p retry.Policy, op string, fn func(context.Context) error) error {
	return retry.Do(ctx, p,
		func(err error) bool { return errs.IsRepo(err, errs.RepoConnection) },
		func(ctx context.Context) error {
			return errs.RepoFromDB(op, fn(ctx))
		})
}

func (r *CRUD[C, U, F, R]) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return withRetry(ctx, r.policy, op, fn)
}

func (r *CRUD[C, U, F, R]) Create(ctx context.Context, data C) (R, error) {
	var out R
	query, args, err := qb.Insert(r.table).
		SetMap(data.Values()).
		Suffix("RETURNING " + strings.Join(r.cols, ", ")).
		ToSql()
	if err != nil {
		return out, errs.NewRepo(errs.RepoOperation, "create: build query", err)
	}

	err = r.do(ctx, "create", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &out, query, args...)
	})
	if err != nil {
		r.log.Debug("create failed", zap.String("query", query), zap.Error(err))
	}
	return out, err
}

// GetByID returns (nil, nil) when the id does not exist: absence is not a
// failure at this layer.
func (r *CRUD[C, U, F, R]) GetByID(ctx context.Context, id uuid.UUID) (*R, error) {
	query, args, err := qb.Select(r.cols...).
		From(r.table).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_by_id: build query", err)
	}

	var out R
	err = r.do(ctx, "get_by_id", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &out, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CRUD[C, U, F, R]) GetAll(ctx context.Context, filter *F, p ListParams) ([]R, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	q := qb.Select(r.cols...).From(r.table)
	if filter != nil {
		for _, cond := range (*filter).Conds() {
			q = q.Where(cond)
		}
	}
	if p.OrderBy != "" {
		order, err := r.orderClause(p.OrderBy)
		if err != nil {
			return nil, err
		}
		q = q.OrderBy(order)
	}
	q = q.Limit(uint64(p.Limit)).Offset(uint64(p.Offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "get_all: build query", err)
	}
	r.log.Debug("get_all", zap.String("query", query), zap.Any("args", args))

	out := make([]R, 0)
	err = r.do(ctx, "get_all", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies only the fields present in data. Returns (nil, nil) when
// the id does not exist.
func (r *CRUD[C, U, F, R]) Update(ctx context.Context, id uuid.UUID, data U) (*R, error) {
	vals := data.Values()
	if len(vals) == 0 {
		return r.GetByID(ctx, id)
	}

	query, args, err := qb.Update(r.table).
		SetMap(vals).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(r.cols, ", ")).
		ToSql()
	if err != nil {
		return nil, errs.NewRepo(errs.RepoOperation, "update: build query", err)
	}

	var out R
	err = r.do(ctx, "update", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &out, query, args...)
	})
	if errs.IsRepo(err, errs.RepoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *CRUD[C, U, F, R]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args, err := qb.Delete(r.table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, errs.NewRepo(errs.RepoOperation, "delete: build query", err)
	}

	var affected int64
	err = r.do(ctx, "delete", func(ctx context.Context) error {
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

func (r *CRUD[C, U, F, R]) Exists(ctx context.Context, criteria map[string]any) (bool, error) {
	inner, args, err := qb.Select("1").
		From(r.table).
		Where(sq.Eq(criteria)).
		ToSql()
	if err != nil {
		return false, errs.NewRepo(errs.RepoOperation, "exists: build query", err)
	}

	var exists bool
	err = r.do(ctx, "exists", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &exists, "SELECT EXISTS ("+inner+")", args...)
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// orderClause accepts "col", "col asc" or "col desc" for a known column.
func (r *CRUD[C, U, F, R]) orderClause(orderBy string) (string, error) {
	parts := strings.Fields(strings.ToLower(orderBy))
	if len(parts) == 0 || len(parts) > 2 {
		return "", errs.NewRepo(errs.RepoOperation, "get_all: bad order_by", errors.Errorf("order_by %q", orderBy))
	}
	col, dir := parts[0], "asc"
	if len(parts) == 2 {
		dir = parts[1]
		if dir != "asc" && dir != "desc" {
			return "", errs.NewRepo(errs.RepoOperation, "get_all: bad order_by", errors.Errorf("order_by %q", orderBy))
		}
	}
	for _, c := range r.cols {
		if c == col {
			return col + " " + dir, nil
		}
	}
	return "", errs.NewRepo(errs.RepoOperation, "get_all: bad order_by", errors.Errorf("unknown column %q", col))
}
