package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/internal/repository"
)

// fakeRepo is a function-field test double for the generic persistence
// contract. mockgen cannot generate generic interfaces, so the generic
// service is tested with handwritten fakes. An unstubbed method returns zero
// values, so a test missing a stub fails on its assertions, not with a panic.
type fakeRepo[C, U, F, R any] struct {
	createFn func(ctx context.Context, data C) (R, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*R, error)
	getAllFn func(ctx context.Context, filter *F, p repository.ListParams) ([]R, error)
	updateFn func(ctx context.Context, id uuid.UUID, data U) (*R, error)
	deleteFn func(ctx context.Context, id uuid.UUID) (bool, error)
	existsFn func(ctx context.Context, criteria map[string]any) (bool, error)
}

func (f *fakeRepo[C, U, F, R]) Create(ctx context.Context, data C) (R, error) {
	if f.createFn == nil {
		var zero R
		return zero, nil
	}
	return f.createFn(ctx, data)
}

func (f *fakeRepo[C, U, F, R]) GetByID(ctx context.Context, id uuid.UUID) (*R, error) {
	if f.getFn == nil {
		return nil, nil
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo[C, U, F, R]) GetAll(ctx context.Context, filter *F, p repository.ListParams) ([]R, error) {
	if f.getAllFn == nil {
		return nil, nil
	}
	return f.getAllFn(ctx, filter, p)
}

func (f *fakeRepo[C, U, F, R]) Update(ctx context.Context, id uuid.UUID, data U) (*R, error) {
	if f.updateFn == nil {
		return nil, nil
	}
	return f.updateFn(ctx, id, data)
}

func (f *fakeRepo[C, U, F, R]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.deleteFn == nil {
		return false, nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeRepo[C, U, F, R]) Exists(ctx context.Context, criteria map[string]any) (bool, error) {
	if f.existsFn == nil {
		return false, nil
	}
	return f.existsFn(ctx, criteria)
}

type genreFake = fakeRepo[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre]

func newGenreSvc(f *genreFake) *Service[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre] {
	return NewService[model.GenreCreate, model.GenreUpdate, model.GenreFilter, model.Genre](f, zap.NewNop(), "genre")
}

func TestService_Get_AbsenceIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newGenreSvc(&genreFake{
		getFn: func(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
			return nil, nil
		},
	})

	_, err := svc.Get(context.Background(), uuid.New())
	require.True(t, errs.IsService(err, errs.ServiceNotFound))
}

func TestService_List_PaginationBounds(t *testing.T) {
	t.Parallel()

	var gotLimit int
	svc := newGenreSvc(&genreFake{
		getAllFn: func(ctx context.Context, filter *model.GenreFilter, p repository.ListParams) ([]model.Genre, error) {
			gotLimit = p.Limit
			return []model.Genre{}, nil
		},
	})
	ctx := context.Background()

	_, err := svc.List(ctx, nil, repository.ListParams{Limit: MaxLimit + 1})
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	_, err = svc.List(ctx, nil, repository.ListParams{Limit: -1})
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	_, err = svc.List(ctx, nil, repository.ListParams{Offset: -1})
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	// zero limit falls back to the default page size
	_, err = svc.List(ctx, nil, repository.ListParams{})
	require.NoError(t, err)
	require.Equal(t, repository.DefaultLimit, gotLimit)
}

func TestService_Update_AbsentIDIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newGenreSvc(&genreFake{
		updateFn: func(ctx context.Context, id uuid.UUID, data model.GenreUpdate) (*model.Genre, error) {
			return nil, nil
		},
	})

	name := "Fantasy"
	_, err := svc.Update(context.Background(), uuid.New(), model.GenreUpdate{Name: &name})
	require.True(t, errs.IsService(err, errs.ServiceNotFound))
}

func TestService_Delete_AbsentIDIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newGenreSvc(&genreFake{
		deleteFn: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return false, nil
		},
	})

	err := svc.Delete(context.Background(), uuid.New())
	require.True(t, errs.IsService(err, errs.ServiceNotFound))
}

func TestService_Create_TranslatesRepoErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		repo error
		want errs.ServiceKind
	}{
		{"integrity", errs.NewRepo(errs.RepoIntegrity, "create", nil), errs.ServiceIntegrity},
		{"connection", errs.NewRepo(errs.RepoConnection, "create", nil), errs.ServiceTemporary},
		{"operation", errs.NewRepo(errs.RepoOperation, "create", nil), errs.ServiceOperation},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newGenreSvc(&genreFake{
				createFn: func(ctx context.Context, data model.GenreCreate) (model.Genre, error) {
					return model.Genre{}, tt.repo
				},
			})
			_, err := svc.Create(context.Background(), model.GenreCreate{Name: "Fantasy"})
			require.True(t, errs.IsService(err, tt.want), "got %v", err)
		})
	}
}

func TestService_Create_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newGenreSvc(&genreFake{})
	_, err := svc.Create(context.Background(), model.GenreCreate{})
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestService_Get_RetriesTemporary(t *testing.T) {
	t.Parallel()

	var calls int
	want := &model.Genre{ID: uuid.New(), Name: "Fantasy"}
	svc := newGenreSvc(&genreFake{
		getFn: func(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
			calls++
			if calls < 3 {
				return nil, errs.NewRepo(errs.RepoConnection, "get", nil)
			}
			return want, nil
		},
	})

	got, err := svc.Get(context.Background(), want.ID)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, 3, calls)
}

func TestService_Get_DoesNotRetryOperation(t *testing.T) {
	t.Parallel()

	var calls int
	svc := newGenreSvc(&genreFake{
		getFn: func(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
			calls++
			return nil, errs.NewRepo(errs.RepoOperation, "get", nil)
		},
	})

	_, err := svc.Get(context.Background(), uuid.New())
	require.True(t, errs.IsService(err, errs.ServiceOperation))
	require.Equal(t, 1, calls)
}
