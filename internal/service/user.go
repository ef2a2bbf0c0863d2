package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

type UserRepo interface {
	Repo[model.UserInsert, model.UserUpdate, model.UserFilter, model.User]
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type UserService struct {
	*Service[model.UserInsert, model.UserUpdate, model.UserFilter, model.User]
	repo UserRepo
}

func NewUserService(repo UserRepo, log *zap.Logger) *UserService {
	return &UserService{
		Service: NewService[model.UserInsert, model.UserUpdate, model.UserFilter, model.User](repo, log, "user"),
		repo:    repo,
	}
}

// Register hashes the password and creates the user. Username and email are
// checked for uniqueness up front so the caller gets a validation error
// instead of a bare integrity conflict.
func (s *UserService) Register(ctx context.Context, data model.UserCreate) (model.User, error) {
	if err := validate.Struct(data); err != nil {
		return model.User{}, errs.NewService(errs.ServiceValidation, "register user", err)
	}

	taken, err := s.repo.Exists(ctx, map[string]any{"username": data.Username})
	if err != nil {
		return model.User{}, errs.ServiceFromRepo("register user", err)
	}
	if taken {
		return model.User{}, errs.NewService(errs.ServiceIntegrity, "username is already taken", nil)
	}
	taken, err = s.repo.Exists(ctx, map[string]any{"email": data.Email})
	if err != nil {
		return model.User{}, errs.ServiceFromRepo("register user", err)
	}
	if taken {
		return model.User{}, errs.NewService(errs.ServiceIntegrity, "email is already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, errs.NewService(errs.ServiceInternal, "hash password", err)
	}

	user, err := s.repo.Create(ctx, model.UserInsert{
		Username:     data.Username,
		Email:        data.Email,
		FullName:     data.FullName,
		PasswordHash: string(hash),
		Roles:        data.Roles,
	})
	if err != nil {
		return model.User{}, errs.ServiceFromRepo("register user", err)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, errs.ServiceFromRepo("get user by username", err)
	}
	if user == nil {
		return nil, errs.NotFound("user not found")
	}
	return user, nil
}

// CheckPassword verifies a username/password pair against the stored hash.
func (s *UserService) CheckPassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errs.Validation("user is deactivated")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errs.Validation("invalid credentials")
	}
	return user, nil
}
