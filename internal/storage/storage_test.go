package storage

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/pkg/retry"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type fakeAPI struct {
	putErrs    []error
	putCalls   int
	removeErr  error
	removeKeys []string
	statErr    error
	copyErr    error
	copyMeta   map[string]string
	listInfos  []minio.ObjectInfo
}

func (f *fakeAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putCalls++
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Key: key, Size: size}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error) {
	return nil, minio.ErrorResponse{Code: "NoSuchKey"}
}

func (f *fakeAPI) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return minio.ObjectInfo{ContentType: "application/pdf", Size: 7}, f.statErr
}

func (f *fakeAPI) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	f.removeKeys = append(f.removeKeys, key)
	return f.removeErr
}

func (f *fakeAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.listInfos))
	for _, info := range f.listInfos {
		ch <- info
	}
	close(ch)
	return ch
}

func (f *fakeAPI) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	f.copyMeta = dst.UserMetadata
	return minio.UploadInfo{}, f.copyErr
}

func (f *fakeAPI) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	return url.Parse("https://s3.local/" + bucket + "/" + key + "?signed=1")
}

func newTestClient(f *fakeAPI) *Client {
	return &Client{
		api:    f,
		bucket: "test",
		log:    zap.NewNop(),
		policy: retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}
}

func TestUpload_RetriesConnectionThenSucceeds(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{putErrs: []error{timeoutErr{}, timeoutErr{}}}
	c := newTestClient(f)

	err := c.Upload(context.Background(), "books/x/pdf.pdf", []byte("data"), "application/pdf", nil)
	require.NoError(t, err)
	require.Equal(t, 3, f.putCalls)
}

func TestUpload_ConnectionBoundExhausted(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{putErrs: []error{timeoutErr{}, timeoutErr{}, timeoutErr{}}}
	c := newTestClient(f)

	err := c.Upload(context.Background(), "k", []byte("data"), "", nil)
	require.True(t, errs.IsStorage(err, errs.StorageConnection))
	require.Equal(t, 3, f.putCalls)
}

func TestUpload_AccessDeniedNotRetried(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{putErrs: []error{minio.ErrorResponse{Code: "AccessDenied"}}}
	c := newTestClient(f)

	err := c.Upload(context.Background(), "k", []byte("data"), "", nil)
	require.True(t, errs.IsStorage(err, errs.StorageAccessDenied))
	require.Equal(t, 1, f.putCalls)
}

func TestFromProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind errs.StorageKind
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey"}, errs.StorageNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, errs.StorageNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, errs.StorageAccessDenied},
		{"invalid state", minio.ErrorResponse{Code: "InvalidObjectState"}, errs.StorageInvalidState},
		{"internal", minio.ErrorResponse{Code: "InternalError"}, errs.StorageInternal},
		{"other code", minio.ErrorResponse{Code: "SlowDown"}, errs.StorageOperation},
		{"timeout", timeoutErr{}, errs.StorageConnection},
		{"deadline", context.DeadlineExceeded, errs.StorageConnection},
		{"plain", errors.New("boom"), errs.StorageOperation},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fromProvider("op", tt.err)
			require.True(t, errs.IsStorage(got, tt.kind), "got %v", got)
		})
	}
	require.NoError(t, fromProvider("op", nil))
}

func TestDelete_MapsNotFound(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{removeErr: minio.ErrorResponse{Code: "NoSuchKey"}}
	c := newTestClient(f)

	err := c.Delete(context.Background(), "gone")
	require.True(t, errs.IsStorage(err, errs.StorageNotFound))
}

func TestList(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{listInfos: []minio.ObjectInfo{{Key: "books/a/pdf.pdf"}, {Key: "books/a/cover.png"}}}
	c := newTestClient(f)

	keys, err := c.List(context.Background(), "books/a/")
	require.NoError(t, err)
	require.Equal(t, []string{"books/a/pdf.pdf", "books/a/cover.png"}, keys)
}

func TestPresignedURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(&fakeAPI{})
	u, err := c.PresignedURL(context.Background(), "books/a/pdf.pdf", time.Hour, "book.pdf")
	require.NoError(t, err)
	require.Contains(t, u, "books/a/pdf.pdf")
}

func TestSanitizeMetadata(t *testing.T) {
	t.Parallel()

	// cyrillic values are transliterated
	md, err := SanitizeMetadata(map[string]string{"author": "Иван Петров", "lang": "ru"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"author": "Ivan Petrov", "lang": "ru"}, md)

	// values that stay non-ascii after transliteration are rejected
	_, err = SanitizeMetadata(map[string]string{"title": "café"})
	require.Error(t, err)

	md, err = SanitizeMetadata(nil)
	require.NoError(t, err)
	require.Nil(t, md)
}

func TestUpdateMetadata_SanitizesValues(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{}
	c := newTestClient(f)

	err := c.UpdateMetadata(context.Background(), "books/a/pdf.pdf", map[string]string{"author": "Иван Петров"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"author": "Ivan Petrov"}, f.copyMeta)

	err = c.UpdateMetadata(context.Background(), "books/a/pdf.pdf", map[string]string{"title": "café"})
	require.True(t, errs.IsStorage(err, errs.StorageOperation))
}
