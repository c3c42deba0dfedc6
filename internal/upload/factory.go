package upload

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewFromEnv builds the uploader selected by UPLOAD_PROVIDER. catbox is
// the default and needs no configuration.
func NewFromEnv(ctx context.Context) (Uploader, error) {
	provider := os.Getenv("UPLOAD_PROVIDER")
	if provider == "" {
		provider = "catbox"
	}

	switch provider {
	case "catbox":
		return NewCatbox(""), nil

	case "minio":
		return NewMinio(MinioConfig{
			Endpoint:   mustEnv("MINIO_ENDPOINT"),
			AccessKey:  mustEnv("MINIO_ACCESS_KEY"),
			SecretKey:  mustEnv("MINIO_SECRET_KEY"),
			UseSSL:     os.Getenv("MINIO_USE_SSL") == "true",
			Bucket:     mustEnv("MINIO_BUCKET"),
			PublicBase: mustEnv("MINIO_PUBLIC_BASEURL"),
		})

	case "gdrive":
		return newGDriveFromEnv(ctx)

	default:
		return nil, fmt.Errorf("unknown upload provider: %s", provider)
	}
}

func newGDriveFromEnv(ctx context.Context) (Uploader, error) {
	conf := &oauth2.Config{
		ClientID:     mustEnv("GDRIVE_CLIENT_ID"),
		ClientSecret: mustEnv("GDRIVE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: mustEnv("GDRIVE_REFRESH_TOKEN")}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return NewGDrive(srv, os.Getenv("GDRIVE_FOLDER_ID")), nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
