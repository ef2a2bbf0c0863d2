package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

const minSearchTerm = 3

// AuthorRepo extends the generic persistence contract with the author
// lookups the service needs.
type AuthorRepo interface {
	Repo[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author]
	GetByName(ctx context.Context, name string) (*model.Author, error)
	SearchInBio(ctx context.Context, term string) ([]model.Author, error)
}

type AuthorService struct {
	*Service[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author]
	repo AuthorRepo
}

func NewAuthorService(repo AuthorRepo, log *zap.Logger) *AuthorService {
	return &AuthorService{
		Service: NewService[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author](repo, log, "author"),
		repo:    repo,
	}
}

// Create additionally requires a full name: at least two space-separated
// parts, none of them blank.
func (s *AuthorService) Create(ctx context.Context, data model.AuthorCreate) (model.Author, error) {
	if err := validateAuthorName(data.Name); err != nil {
		return model.Author{}, err
	}
	if data.Bio != nil {
		if err := validateBio(*data.Bio); err != nil {
			return model.Author{}, err
		}
	}
	return s.Service.Create(ctx, data)
}

func (s *AuthorService) Update(ctx context.Context, id uuid.UUID, data model.AuthorUpdate) (*model.Author, error) {
	if data.Name != nil {
		if err := validateAuthorName(*data.Name); err != nil {
			return nil, err
		}
	}
	if data.Bio != nil {
		if err := validateBio(*data.Bio); err != nil {
			return nil, err
		}
	}
	return s.Service.Update(ctx, id, data)
}

func (s *AuthorService) GetByName(ctx context.Context, name string) (*model.Author, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("author name must not be blank")
	}
	author, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, errs.ServiceFromRepo("get author by name", err)
	}
	if author == nil {
		return nil, errs.NotFound("author not found")
	}
	return author, nil
}

func (s *AuthorService) SearchInBio(ctx context.Context, term string) ([]model.Author, error) {
	term = strings.TrimSpace(term)
	if len(term) < minSearchTerm {
		return nil, errs.Validation("search term must be at least 3 characters")
	}
	authors, err := s.repo.SearchInBio(ctx, term)
	if err != nil {
		return nil, errs.ServiceFromRepo("search authors", err)
	}
	return authors, nil
}

func validateAuthorName(name string) error {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return errs.Validation("author name must contain at least a first and last name")
	}
	return nil
}

func validateBio(bio string) error {
	if len(strings.TrimSpace(bio)) < 10 {
		return errs.Validation("bio must be at least 10 characters")
	}
	return nil
}
