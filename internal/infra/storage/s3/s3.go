package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// Storage хранит резервные копии документов в S3-совместимом бакете.
type Storage struct {
	cl     *minio.Client
	bucket string
	logger *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	s := &Storage{cl: cl, bucket: cfg.Bucket, logger: logger}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureBucket(ctx context.Context, region string) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket %q: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("s3: make bucket %q: %w", s.bucket, err)
	}
	s.logger.Info("s3 bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Put загружает поток под заданным ключом. size = -1, если длина неизвестна.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, mime string) (domain.BlobPutResult, error) {
	key = strings.TrimPrefix(key, "/")
	info, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return domain.BlobPutResult{}, err
	}
	return domain.BlobPutResult{StorageKey: info.Key, Size: info.Size, ETag: info.ETag}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("s3: bucket %q not found", s.bucket)
	}
	return nil
}
