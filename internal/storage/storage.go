// Package storage wraps an S3-compatible object store behind the storage
// error taxonomy. Provider error codes never escape this package.
package storage

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/errs"
	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/pkg/retry"
	"github.com/ekarpov/bookvault/pkg/translit"
)

type Config struct {
	Endpoint  string `envconfig:"S3_ENDPOINT"`
	AccessKey string `envconfig:"S3_ACCESS_KEY"`
	SecretKey string `envconfig:"S3_SECRET_KEY"`
	Bucket    string `envconfig:"S3_BUCKET" default:"bookvault"`
	Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`
}

// api is the slice of the minio client the storage layer uses.
type api interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

var defaultRetry = retry.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond}

type Client struct {
	api    api
	bucket string
	log    *zap.Logger
	policy retry.Policy
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	return &Client{
		api:    mc,
		bucket: cfg.Bucket,
		log:    log.Named("storage"),
		policy: defaultRetry,
	}, nil
}

func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(ctx, c.policy,
		func(err error) bool { return errs.IsStorage(err, errs.StorageConnection) },
		func(ctx context.Context) error {
			return fromProvider(op, fn(ctx))
		})
}

// Upload stores content under key. Metadata must already be ASCII-clean,
// see SanitizeMetadata.
func (c *Client) Upload(ctx context.Context, key string, content []byte, contentType string, metadata map[string]string) error {
	return c.do(ctx, "upload "+key, func(ctx context.Context) error {
		_, err := c.api.PutObject(ctx, c.bucket, key,
			bytes.NewReader(content), int64(len(content)),
			minio.PutObjectOptions{
				ContentType:  contentType,
				UserMetadata: metadata,
			})
		return err
	})
}

func (c *Client) Download(ctx context.Context, key string) (*model.FileContent, error) {
	var out *model.FileContent
	err := c.do(ctx, "download "+key, func(ctx context.Context) error {
		obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer obj.Close() //nolint:errcheck

		info, err := obj.Stat()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(obj)
		if err != nil {
			return err
		}
		name := key
		if i := strings.LastIndexByte(key, '/'); i >= 0 {
			name = key[i+1:]
		}
		out = &model.FileContent{
			Filename:    name,
			ContentType: info.ContentType,
			Content:     data,
			Metadata:    info.UserMetadata,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.do(ctx, "delete "+key, func(ctx context.Context) error {
		return c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	})
}

func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := c.do(ctx, "list "+prefix, func(ctx context.Context) error {
		keys = keys[:0]
		for info := range c.api.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if info.Err != nil {
				return info.Err
			}
			keys = append(keys, info.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// PresignedURL returns a time-limited download link. A non-empty
// downloadName forces a content-disposition attachment filename.
func (c *Client) PresignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", `attachment; filename="`+downloadName+`"`)
	}

	var signed string
	err := c.do(ctx, "presign "+key, func(ctx context.Context) error {
		u, err := c.api.PresignedGetObject(ctx, c.bucket, key, ttl, params)
		if err != nil {
			return err
		}
		signed = u.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (c *Client) Metadata(ctx context.Context, key string) (model.ObjectMeta, error) {
	var meta model.ObjectMeta
	err := c.do(ctx, "metadata "+key, func(ctx context.Context) error {
		info, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
		if err != nil {
			return err
		}
		meta = model.ObjectMeta{
			ContentType:  info.ContentType,
			Size:         info.Size,
			LastModified: info.LastModified,
			Metadata:     info.UserMetadata,
		}
		return nil
	})
	return meta, err
}

// UpdateMetadata replaces object metadata via server-side copy: the wire
// protocol has no in-place metadata mutation. Metadata passes through
// SanitizeMetadata here, there is no service layer above to enforce the
// ASCII contract the way the upload path does.
func (c *Client) UpdateMetadata(ctx context.Context, key string, metadata map[string]string) error {
	metadata, err := SanitizeMetadata(metadata)
	if err != nil {
		return errs.NewStorage(errs.StorageOperation, "update_metadata "+key, err)
	}
	return c.do(ctx, "update_metadata "+key, func(ctx context.Context) error {
		_, err := c.api.CopyObject(ctx,
			minio.CopyDestOptions{
				Bucket:          c.bucket,
				Object:          key,
				UserMetadata:    metadata,
				ReplaceMetadata: true,
			},
			minio.CopySrcOptions{
				Bucket: c.bucket,
				Object: key,
			})
		return err
	})
}

// SanitizeMetadata transliterates cyrillic metadata values and rejects any
// value that still contains non-ASCII bytes. The provider rejects non-ASCII
// header values outright, so this contract is enforced before every upload.
func SanitizeMetadata(metadata map[string]string) (map[string]string, error) {
	if metadata == nil {
		return nil, nil
	}
	out := translit.Map(metadata)
	for k, v := range out {
		if !translit.IsASCII(v) {
			return nil, errors.Errorf("metadata %q is not ascii after transliteration: %q", k, v)
		}
	}
	return out, nil
}

// fromProvider maps a minio error into the storage taxonomy.
func fromProvider(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *errs.StorageError
	if errors.As(err, &se) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return errs.NewStorage(errs.StorageNotFound, op, err)
	case "AccessDenied":
		return errs.NewStorage(errs.StorageAccessDenied, op, err)
	case "InvalidObjectState":
		return errs.NewStorage(errs.StorageInvalidState, op, err)
	case "InternalError":
		return errs.NewStorage(errs.StorageInternal, op, err)
	}
	if resp.Code != "" {
		return errs.NewStorage(errs.StorageOperation, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return errs.NewStorage(errs.StorageConnection, op, err)
	}
	return errs.NewStorage(errs.StorageOperation, op, err)
}
