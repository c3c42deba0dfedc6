package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wanvideo/internal/pkg/errors"
)

// MinioConfig configures the S3-compatible uploader.
type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	PublicBase string
}

// Minio uploads videos to an S3-compatible bucket fronted by a public
// base URL.
type Minio struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func NewMinio(cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Minio{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
	}, nil
}

func (m *Minio) Provider() string { return "minio" }

func (m *Minio) Upload(ctx context.Context, path string) (string, error) {
	url, err := m.upload(ctx, path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUpload, "upload.minio", "failed to upload video")
	}
	return url, nil
}

func (m *Minio) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	objectKey := filepath.Base(path)
	_, err = m.client.PutObject(ctx, m.bucket, objectKey, f, st.Size(), minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", m.publicBase, m.bucket, objectKey), nil
}
