package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/repository"
	"github.com/ekarpov/bookvault/pkg/retry"
)

// MaxLimit bounds a single page. Larger requests are a caller bug, not a
// reason to scan the table.
const MaxLimit = 1000

var validate = validator.New()

// serviceRetry re-drives repo calls whose translated failure is Temporary.
// The repository retries the raw connection errors itself; this second bound
// covers outages that outlive a single repo-level retry window.
var serviceRetry = retry.Policy{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// Repo is the persistence contract the generic service drives. The
// repository returns (nil, nil) for an absent row; the service is the layer
// that turns absence into a not-found error.
type Repo[C, U, F, R any] interface {
	Create(ctx context.Context, data C) (R, error)
	GetByID(ctx context.Context, id uuid.UUID) (*R, error)
	GetAll(ctx context.Context, filter *F, p repository.ListParams) ([]R, error)
	Update(ctx context.Context, id uuid.UUID, data U) (*R, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Exists(ctx context.Context, criteria map[string]any) (bool, error)
}

// Service wraps one entity repository with input validation, error
// translation and a retry bound on Temporary failures. Everything it returns
// is either a value or a ServiceError.
type Service[C, U, F, R any] struct {
	repo   Repo[C, U, F, R]
	log    *zap.Logger
	entity string
}

func NewService[C, U, F, R any](repo Repo[C, U, F, R], log *zap.Logger, entity string) *Service[C, U, F, R] {
	return &Service[C, U, F, R]{
		repo:   repo,
		log:    log.Named("service").With(zap.String("entity", entity)),
		entity: entity,
	}
}

func (s *Service[C, U, F, R]) do(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, serviceRetry,
		func(err error) bool { return errs.IsService(err, errs.ServiceTemporary) },
		fn)
}

func (s *Service[C, U, F, R]) Create(ctx context.Context, data C) (R, error) {
	var out R
	if err := validate.Struct(data); err != nil {
		return out, errs.NewService(errs.ServiceValidation, "create "+s.entity, err)
	}
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.Create(ctx, data)
		return errs.ServiceFromRepo("create "+s.entity, err)
	})
	return out, err
}

func (s *Service[C, U, F, R]) Get(ctx context.Context, id uuid.UUID) (*R, error) {
	var out *R
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.GetByID(ctx, id)
		return errs.ServiceFromRepo("get "+s.entity, err)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errs.NotFound(s.entity + " not found")
	}
	return out, nil
}

func (s *Service[C, U, F, R]) List(ctx context.Context, filter *F, p repository.ListParams) ([]R, error) {
	if p.Limit == 0 {
		p.Limit = repository.DefaultLimit
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return nil, errs.Validation("limit must be between 1 and 1000")
	}
	if p.Offset < 0 {
		return nil, errs.Validation("offset must not be negative")
	}
	var out []R
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.GetAll(ctx, filter, p)
		return errs.ServiceFromRepo("list "+s.entity, err)
	})
	return out, err
}

// Update patches only the fields set in data. Updating an absent id is a
// not-found error, never an upsert.
func (s *Service[C, U, F, R]) Update(ctx context.Context, id uuid.UUID, data U) (*R, error) {
	if err := validate.Struct(data); err != nil {
		return nil, errs.NewService(errs.ServiceValidation, "update "+s.entity, err)
	}
	var out *R
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.Update(ctx, id, data)
		return errs.ServiceFromRepo("update "+s.entity, err)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errs.NotFound(s.entity + " not found")
	}
	return out, nil
}

func (s *Service[C, U, F, R]) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.repo.Delete(ctx, id)
		return errs.ServiceFromRepo("delete "+s.entity, err)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return errs.NotFound(s.entity + " not found")
	}
	return nil
}

func (s *Service[C, U, F, R]) Exists(ctx context.Context, criteria map[string]any) (bool, error) {
	var ok bool
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.repo.Exists(ctx, criteria)
		return errs.ServiceFromRepo("exists "+s.entity, err)
	})
	return ok, err
}
