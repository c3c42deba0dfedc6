package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"wanvideo/internal/pkg/errors"
)

// GDrive uploads videos to a Google Drive folder and makes them publicly
// readable so the returned link works without authentication.
type GDrive struct {
	srv      *drive.Service
	folderID string
}

func NewGDrive(srv *drive.Service, folderID string) *GDrive {
	return &GDrive{srv: srv, folderID: folderID}
}

func (g *GDrive) Provider() string { return "gdrive" }

func (g *GDrive) Upload(ctx context.Context, path string) (string, error) {
	url, err := g.upload(ctx, path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUpload, "upload.gdrive", "failed to upload video")
	}
	return url, nil
}

func (g *GDrive) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	meta := &drive.File{Name: filepath.Base(path)}
	if g.folderID != "" {
		meta.Parents = []string{g.folderID}
	}

	created, err := g.srv.Files.Create(meta).
		Media(f, googleapi.ContentType("video/mp4")).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	_, err = g.srv.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", created.Id), nil
}
