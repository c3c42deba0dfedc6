package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wanvideo/internal/pkg/errors"
)

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wan21_i2v_deadbeef.mp4")
	if err := os.WriteFile(path, []byte("mp4 bytes"), 0o644); err != nil {
		t.Fatalf("write temp video: %v", err)
	}
	return path
}

func TestCatboxUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("reqtype"); got != "fileupload" {
			t.Errorf("expected reqtype=fileupload, got %q", got)
		}

		f, hdr, err := r.FormFile("fileToUpload")
		if err != nil {
			t.Fatalf("missing fileToUpload part: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "wan21_i2v_deadbeef.mp4" {
			t.Errorf("unexpected upload filename %q", hdr.Filename)
		}
		body, _ := io.ReadAll(f)
		if string(body) != "mp4 bytes" {
			t.Errorf("unexpected upload body %q", body)
		}

		// Catbox replies with the bare URL; pad it to prove trimming.
		w.Write([]byte("  https://files.catbox.moe/abc123.mp4\n"))
	}))
	defer srv.Close()

	url, err := NewCatbox(srv.URL).Upload(context.Background(), writeTempVideo(t))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "https://files.catbox.moe/abc123.mp4" {
		t.Errorf("expected trimmed URL, got %q", url)
	}
}

func TestCatboxUploadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try again later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewCatbox(srv.URL).Upload(context.Background(), writeTempVideo(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeUpload) {
		t.Errorf("expected UPLOAD_ERROR, got %s", errors.CodeOf(err))
	}
}

func TestCatboxUploadEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	_, err := NewCatbox(srv.URL).Upload(context.Background(), writeTempVideo(t))
	if err == nil {
		t.Fatal("expected error for empty response body")
	}
	if !errors.IsCode(err, errors.CodeUpload) {
		t.Errorf("expected UPLOAD_ERROR, got %s", errors.CodeOf(err))
	}
}

func TestCatboxUploadMissingFile(t *testing.T) {
	_, err := NewCatbox("http://127.0.0.1:1").Upload(context.Background(), "/nope/missing.mp4")
	if err == nil {
		t.Fatal("expected error for missing local file")
	}
	if !errors.IsCode(err, errors.CodeUpload) {
		t.Errorf("expected UPLOAD_ERROR, got %s", errors.CodeOf(err))
	}
}
