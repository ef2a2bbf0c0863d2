package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
)

type authorFake struct {
	fakeRepo[model.AuthorCreate, model.AuthorUpdate, model.AuthorFilter, model.Author]
	getByNameFn func(ctx context.Context, name string) (*model.Author, error)
	searchFn    func(ctx context.Context, term string) ([]model.Author, error)
}

func (f *authorFake) GetByName(ctx context.Context, name string) (*model.Author, error) {
	return f.getByNameFn(ctx, name)
}

func (f *authorFake) SearchInBio(ctx context.Context, term string) ([]model.Author, error) {
	return f.searchFn(ctx, term)
}

func TestAuthorService_Create_RequiresFullName(t *testing.T) {
	t.Parallel()

	svc := NewAuthorService(&authorFake{}, zap.NewNop())

	_, err := svc.Create(context.Background(), model.AuthorCreate{Name: "Plato"})
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	_, err = svc.Create(context.Background(), model.AuthorCreate{Name: "   "})
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthorService_Create_OK(t *testing.T) {
	t.Parallel()

	fake := &authorFake{}
	fake.createFn = func(ctx context.Context, data model.AuthorCreate) (model.Author, error) {
		return model.Author{Name: data.Name}, nil
	}
	svc := NewAuthorService(fake, zap.NewNop())

	author, err := svc.Create(context.Background(), model.AuthorCreate{Name: "Leo Tolstoy"})
	require.NoError(t, err)
	require.Equal(t, "Leo Tolstoy", author.Name)
}

func TestAuthorService_Create_ShortBioRejected(t *testing.T) {
	t.Parallel()

	svc := NewAuthorService(&authorFake{}, zap.NewNop())
	bio := "short"
	_, err := svc.Create(context.Background(), model.AuthorCreate{Name: "Leo Tolstoy", Bio: &bio})
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthorService_SearchInBio_TermTooShort(t *testing.T) {
	t.Parallel()

	svc := NewAuthorService(&authorFake{}, zap.NewNop())

	_, err := svc.SearchInBio(context.Background(), "ab")
	require.True(t, errs.IsService(err, errs.ServiceValidation))

	// surrounding whitespace does not count toward the minimum
	_, err = svc.SearchInBio(context.Background(), "  ab  ")
	require.True(t, errs.IsService(err, errs.ServiceValidation))
}

func TestAuthorService_GetByName_Absent(t *testing.T) {
	t.Parallel()

	fake := &authorFake{
		getByNameFn: func(ctx context.Context, name string) (*model.Author, error) {
			return nil, nil
		},
	}
	svc := NewAuthorService(fake, zap.NewNop())

	_, err := svc.GetByName(context.Background(), "Nobody Known")
	require.True(t, errs.IsService(err, errs.ServiceNotFound))
}
