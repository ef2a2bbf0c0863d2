package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/internal/repository"
	"github.com/ekarpov/bookvault/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type AuthorService interface {
	Create(ctx context.Context, data model.AuthorCreate) (model.Author, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Author, error)
	List(ctx context.Context, filter *model.AuthorFilter, p repository.ListParams) ([]model.Author, error)
	Update(ctx context.Context, id uuid.UUID, data model.AuthorUpdate) (*model.Author, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByName(ctx context.Context, name string) (*model.Author, error)
	SearchInBio(ctx context.Context, term string) ([]model.Author, error)
}

type GenreService interface {
	Create(ctx context.Context, data model.GenreCreate) (model.Genre, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	List(ctx context.Context, filter *model.GenreFilter, p repository.ListParams) ([]model.Genre, error)
	Update(ctx context.Context, id uuid.UUID, data model.GenreUpdate) (*model.Genre, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByName(ctx context.Context, name string) (*model.Genre, error)
	SearchInDescription(ctx context.Context, term string) ([]model.Genre, error)
}

type BookService interface {
	CreateWithFiles(ctx context.Context, userID uuid.UUID, data model.BookCreate, cover, pdf *model.File) (*model.BookDetail, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*model.BookDetail, error)
	List(ctx context.Context, filter *model.BookFilter, p repository.ListParams) ([]model.Book, error)
	UpdateTracked(ctx context.Context, userID uuid.UUID, id uuid.UUID, data model.BookUpdate, cover, pdf *model.File) (*model.Book, error)
	DeleteCascade(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	History(ctx context.Context, bookID uuid.UUID) ([]model.BookHistory, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Book, error)
	Download(ctx context.Context, token string) (*model.FileContent, error)
}

type UserService interface {
	Register(ctx context.Context, data model.UserCreate) (model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, filter *model.UserFilter, p repository.ListParams) ([]model.User, error)
	Update(ctx context.Context, id uuid.UUID, data model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type AuthService interface {
	DirectLogin(ctx context.Context, username, password string) (*model.Token, error)
	AuthCodeURL(ctx context.Context, redirectURI string) (string, error)
	ExchangeCode(ctx context.Context, code, state string) (*model.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Token, error)
	Introspect(ctx context.Context, token string) (*model.Introspection, error)
	UserInfo(ctx context.Context, accessToken string) (*model.UserInfo, error)
	Logout(ctx context.Context, refreshToken string) error
}

var (
	_ AuthorService = (*service.AuthorService)(nil)
	_ GenreService  = (*service.GenreService)(nil)
	_ BookService   = (*service.BookService)(nil)
	_ UserService   = (*service.UserService)(nil)
	_ AuthService   = (*service.AuthService)(nil)
)
