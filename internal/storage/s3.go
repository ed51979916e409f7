package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/checksum"
	"github.com/starford/redline/internal/models"
)

// S3Config configures an S3-compatible session bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// S3 implements Provider on an S3-compatible object store.
type S3 struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// NewS3 creates a client for cfg. The bucket is created lazily on first use.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("storage: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("storage: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
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
		return nil, fmt.Errorf("storage: init s3 client: %w", err)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, region: region, prefix: prefix}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	if s.initErr != nil {
		return fmt.Errorf("storage: ensure bucket: %w", s.initErr)
	}
	return nil
}

func (s *S3) key(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return s.prefix + id + ext, nil
}

// List returns metadata for every session object under the prefix.
func (s *S3) List(ctx context.Context) ([]models.SessionMetadata, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	var out []models.SessionMetadata
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("storage: list: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if !strings.HasSuffix(name, ext) || strings.Contains(name, "/") {
			continue
		}
		out = append(out, models.SessionMetadata{
			ID:        strings.TrimSuffix(name, ext),
			Checksum:  strings.Trim(obj.ETag, `"`),
			UpdatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load fetches and decodes a session object.
func (s *S3) Load(ctx context.Context, id string) (models.SessionState, models.SessionMetadata, error) {
	key, err := s.key(id)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return models.SessionState{}, models.SessionMetadata{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, s.wrap(id, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, s.wrap(id, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, s.wrap(id, err)
	}
	state, err := decode(data)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, err
	}
	return state, models.SessionMetadata{ID: id, Checksum: checksum.Sum(data), UpdatedAt: info.LastModified}, nil
}

// Save encodes state and uploads it as a single object.
func (s *S3) Save(ctx context.Context, id string, state models.SessionState) (models.SessionMetadata, error) {
	key, err := s.key(id)
	if err != nil {
		return models.SessionMetadata{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return models.SessionMetadata{}, err
	}
	data, err := encode(state)
	if err != nil {
		return models.SessionMetadata{}, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return models.SessionMetadata{}, fmt.Errorf("storage: put %s: %w", id, err)
	}
	return models.SessionMetadata{ID: id, Checksum: checksum.Sum(data), UpdatedAt: info.LastModified}, nil
}

// Delete removes a session object.
func (s *S3) Delete(ctx context.Context, id string) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s.wrap(id, err)
	}
	return nil
}

func (s *S3) wrap(id string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w", id, err)
}
