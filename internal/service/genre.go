package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

type GenreRepo interface {
	Repo[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre]
	GetByName(ctx context.Context, name string) (*model.Genre, error)
	SearchInDescription(ctx context.Context, term string) ([]model.Genre, error)
}

type GenreService struct {
	*Service[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre]
	repo GenreRepo
}

func NewGenreService(repo GenreRepo, log *zap.Logger) *GenreService {
	return &GenreService{
		Service: NewService[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre](repo, log, "genre"),
		repo:    repo,
	}
}

func (s *GenreService) Create(ctx context.Context, data model.GenreCreate) (model.Genre, error) {
	if strings.TrimSpace(data.Name) == "" {
		return model.Genre{}, errs.Validation("genre name must not be blank")
	}
	if data.Description != nil {
		if err := validateDescription(*data.Description); err != nil {
			return model.Genre{}, err
		}
	}
	return s.Service.Create(ctx, data)
}

func (s *GenreService) Update(ctx context.Context, id uuid.UUID, data model.GenreUpdate) (*model.Genre, error) {
	if data.Name != nil && strings.TrimSpace(*data.Name) == "" {
		return nil, errs.Validation("genre name must not be blank")
	}
	if data.Description != nil {
		if err := validateDescription(*data.Description); err != nil {
			return nil, err
		}
	}
	return s.Service.Update(ctx, id, data)
}

func (s *GenreService) GetByName(ctx context.Context, name string) (*model.Genre, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("genre name must not be blank")
	}
	genre, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, errs.ServiceFromRepo("get genre by name", err)
	}
	if genre == nil {
		return nil, errs.NotFound("genre not found")
	}
	return genre, nil
}

func (s *GenreService) SearchInDescription(ctx context.Context, term string) ([]model.Genre, error) {
	term = strings.TrimSpace(term)
	if len(term) < minSearchTerm {
		return nil, errs.Validation("search term must be at least 3 characters")
	}
	genres, err := s.repo.SearchInDescription(ctx, term)
	if err != nil {
		return nil, errs.ServiceFromRepo("search genres", err)
	}
	return genres, nil
}

func validateDescription(description string) error {
	if len(strings.TrimSpace(description)) < 10 {
		return errs.Validation("description must be at least 10 characters")
	}
	return nil
}
