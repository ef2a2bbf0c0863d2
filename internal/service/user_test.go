package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

type userFake struct {
	fakeRepo[model.UserInsert, model.UserUpdate, model.UserFilter, model.User]
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (f *userFake) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return f.getByUsernameFn(ctx, username)
}

func TestUserService_Register_HashesPassword(t *testing.T) {
	t.Parallel()

	var inserted model.UserInsert
	fake := &userFake{}
	fake.existsFn = func(ctx context.Context, criteria map[string]any) (bool, error) {
		return false, nil
	}
	fake.createFn = func(ctx context.Context, data model.UserInsert) (model.User, error) {
		inserted = data
		return model.User{Username: data.Username, Roles: data.Roles}, nil
	}
	svc := NewUserService(fake, zap.NewNop())

	_, err := svc.Register(context.Background(), model.UserCreate{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", inserted.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.PasswordHash), []byte("s3cret-pass")))
}

func TestUserService_Register_UsernameTaken(t *testing.T) {
	t.Parallel()

	fake := &userFake{}
	fake.existsFn = func(ctx context.Context, criteria map[string]any) (bool, error) {
		_, byUsername := criteria["username"]
		return byUsername, nil
	}
	svc := NewUserService(fake, zap.NewNop())

	_, err := svc.Register(context.Background(), model.UserCreate{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "s3cret-pass",
	})
	require.True(t, errs.IsService(err, errs.ServiceIntegrity))
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	t.Parallel()

	fake := &userFake{}
	fake.existsFn = func(ctx context.Context, criteria map[string]any) (bool, error) {
		_, byEmail := criteria["email"]
		return byEmail, nil
	}
	svc := NewUserService(fake, zap.NewNop())

	_, err := svc.Register(context.Background(), model.UserCreate{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "s3cret-pass",
	})
	require.True(t, errs.IsService(err, errs.ServiceIntegrity))
}

func TestUserService_Register_WeakPasswordRejected(t *testing.T) {
	t.Parallel()

	svc := NewUserService(&userFake{}, zap.NewNop())
	_, err := svc.Register(context.Background(), model.UserCreate{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "short",
	})
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestUserService_CheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	active := model.User{Username: "reader", PasswordHash: string(hash), IsActive: true}
	fake := &userFake{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			u := active
			return &u, nil
		},
	}
	svc := NewUserService(fake, zap.NewNop())
	ctx := context.Background()

	user, err := svc.CheckPassword(ctx, "reader", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, "reader", user.Username)

	_, err = svc.CheckPassword(ctx, "reader", "wrong")
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	active.IsActive = false
	_, err = svc.CheckPassword(ctx, "reader", "s3cret-pass")
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}
