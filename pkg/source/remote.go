package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"google.golang.org/api/option"

	verrors "github.com/ajitpratap0/velo/pkg/errors"
)

// Remote reads feed files stored as objects under a common prefix.
type Remote struct {
	kind   string
	bucket string
	prefix string
	get    func(ctx context.Context, key string) ([]byte, error)
	close  func() error
}

// Kind implements Source.
func (r *Remote) Kind() string { return r.kind }

// ReadFile implements Source.
func (r *Remote) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return readWithSiblings(ctx, r.kind, name, func(ctx context.Context, name string) ([]byte, error) {
		return r.fetch(ctx, path.Join(r.prefix, name))
	})
}

func (r *Remote) fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := r.get(ctx, key)
	if err != nil {
		if errors.Is(err, errNoObject) {
			return nil, notFound(r.kind, key)
		}
		return nil, verrors.Wrap(err, verrors.ErrorTypeConnection, "failed to fetch object").
			WithDetail("bucket", r.bucket).
			WithDetail("key", key)
	}
	return data, nil
}

// Close implements Source.
func (r *Remote) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

var errNoObject = errors.New("object does not exist")

// S3 download tuning.
const (
	s3PartSize    = 16 * 1024 * 1024
	s3Concurrency = 8
)

// NewS3 returns a source over s3://bucket/prefix using the default AWS
// credential chain. An empty region defers to the environment.
func NewS3(ctx context.Context, bucket, prefix, region string) (*Remote, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.ErrorTypeConfig, "failed to load AWS configuration")
	}
	return newS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3(client manager.DownloadAPIClient, bucket, prefix string) *Remote {
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = s3PartSize
		d.Concurrency = s3Concurrency
	})
	return &Remote{
		kind:   KindS3,
		bucket: bucket,
		prefix: prefix,
		get: func(ctx context.Context, key string) ([]byte, error) {
			buf := manager.NewWriteAtBuffer(nil)
			_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				var missing *types.NoSuchKey
				if errors.As(err, &missing) {
					return nil, errNoObject
				}
				return nil, err
			}
			return buf.Bytes(), nil
		},
	}
}

// NewGCS returns a source over gs://bucket/prefix. An empty credentialsFile
// uses application default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*Remote, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.ErrorTypeConnection, "failed to create GCS client")
	}
	handle := client.Bucket(bucket)
	r := newGCS(bucket, prefix, func(ctx context.Context, key string) (io.ReadCloser, int64, error) {
		rc, err := handle.Object(key).NewReader(ctx)
		if err != nil {
			return nil, 0, err
		}
		return rc, rc.Attrs.Size, nil
	})
	r.close = client.Close
	return r, nil
}

// objectOpener opens one object and reports its size.
type objectOpener func(ctx context.Context, key string) (io.ReadCloser, int64, error)

func newGCS(bucket, prefix string, open objectOpener) *Remote {
	return &Remote{
		kind:   KindGCS,
		bucket: bucket,
		prefix: prefix,
		get: func(ctx context.Context, key string) ([]byte, error) {
			rc, size, err := open(ctx, key)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotExist) {
					return nil, errNoObject
				}
				return nil, err
			}
			defer rc.Close()

			buf := bytes.NewBuffer(make([]byte, 0, max(size, 0)))
			if _, err := io.Copy(buf, rc); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	}
}
