package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"tunevault/config"
	"tunevault/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the capability to upload a byte stream and later exchange
// a handle for a readable stream of the same bytes.
type ObjectStore interface {
	Upload(ctx context.Context, key, filePath, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

// Acquirer hands out a live ObjectStore or reports that the backing
// provider is unreachable.
type Acquirer interface {
	Acquire(ctx context.Context) (ObjectStore, error)
}

// Provider lazily connects to MinIO using credentials resolved once at
// startup. The first successful Acquire verifies the bucket and caches the
// client; later calls reuse it.
type Provider struct {
	cfg    *config.Config
	mu     sync.Mutex
	client *minio.Client
	ready  bool
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{cfg: cfg}
}

// Acquire returns an ObjectStore bound to the configured bucket. An error
// means the storage provider is unavailable for this request.
func (p *Provider) Acquire(ctx context.Context) (ObjectStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		client, err := p.connect(ctx)
		if err != nil {
			return nil, err
		}
		p.client = client
		p.ready = true
	}
	return &minioStore{client: p.client, bucket: p.cfg.MinioBucket}, nil
}

// connect builds the client, ensures the bucket exists, and opens it for
// anonymous downloads so stored audio can be streamed back without a
// separate authorization path.
func (p *Provider) connect(ctx context.Context) (*minio.Client, error) {
	cfg := p.cfg
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created storage bucket", logger.String("bucket", cfg.MinioBucket))
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, cfg.MinioBucket)
	if err := client.SetBucketPolicy(checkCtx, cfg.MinioBucket, policy); err != nil {
		// Streaming still works through the proxy's own credentials.
		logger.Warn("failed to set public-read bucket policy",
			logger.String("bucket", cfg.MinioBucket),
			logger.ErrorField(err))
	}

	logger.Info("connected to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return client, nil
}

// minioStore implements ObjectStore for one bucket.
type minioStore struct {
	client *minio.Client
	bucket string
}

func (s *minioStore) Upload(ctx context.Context, key, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open staged file %s: %w", filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat staged file %s: %w", filePath, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, file, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *minioStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return object, stat.Size, nil
}
