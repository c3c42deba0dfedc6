package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wanvideo/internal/pkg/errors"
)

const (
	catboxEndpoint = "https://catbox.moe/user/api.php"

	// The host rejects default Go user agents; send a browser one.
	catboxUserAgent = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36"

	catboxTimeout = 60 * time.Second
)

// Catbox uploads files to catbox.moe. The trimmed response body is the
// public URL.
type Catbox struct {
	endpoint string
	client   *http.Client
}

// NewCatbox creates a catbox uploader. An empty endpoint selects the
// public host; tests point it at a local server.
func NewCatbox(endpoint string) *Catbox {
	if endpoint == "" {
		endpoint = catboxEndpoint
	}
	return &Catbox{
		endpoint: endpoint,
		client:   &http.Client{Timeout: catboxTimeout},
	}
}

func (c *Catbox) Provider() string { return "catbox" }

func (c *Catbox) Upload(ctx context.Context, path string) (string, error) {
	url, err := c.upload(ctx, path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUpload, "upload.catbox", "failed to upload video")
	}
	return url, nil
}

func (c *Catbox) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("reqtype", "fileupload"); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("fileToUpload", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", catboxUserAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("http %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	url := strings.TrimSpace(string(raw))
	if url == "" {
		return "", fmt.Errorf("empty response body")
	}
	return url, nil
}
