package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound reports a missing archive object.
var ErrNotFound = errors.New("archive not found")

// Source yields the raw bytes of one zip archive.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// Bytes is an archive already held in memory, such as an upload body.
type Bytes []byte

func (b Bytes) Load(context.Context) ([]byte, error) { return b, nil }

// Open loads src and unpacks it; see Unpack.
func Open(ctx context.Context, src Source) (string, func(), error) {
	data, err := src.Load(ctx)
	if err != nil {
		return "", func() {}, err
	}
	return Unpack(ctx, data)
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store reads archives from an S3-compatible bucket.
type S3Store struct {
	client     *minio.Client
	bucketName string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucketName: bucket}, nil
}

// Object returns a Source for key in the store's bucket.
func (s *S3Store) Object(key string) Source {
	return s3Object{store: s, key: strings.TrimLeft(strings.TrimSpace(key), "/")}
}

// Get downloads key, refusing objects larger than MaxUnpackedBytes.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if key == "" {
		return nil, fmt.Errorf("archive key is required")
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, mapS3Err(key, err)
	}
	if info.Size > MaxUnpackedBytes {
		return nil, fmt.Errorf("%w: object %s is %d bytes", ErrInvalidArchive, key, info.Size)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapS3Err(key, err)
	}
	return data, nil
}

func mapS3Err(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

type s3Object struct {
	store *S3Store
	key   string
}

func (o s3Object) Load(ctx context.Context) ([]byte, error) {
	return o.store.Get(ctx, o.key)
}
