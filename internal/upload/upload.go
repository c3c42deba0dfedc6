// Package upload publishes encoded videos to a public file host.
// Providers (catbox, minio, gdrive) take a local file path and return a
// publicly reachable URL.
package upload

import "context"

type Uploader interface {
	Provider() string

	// Upload sends the file at path and returns its public URL.
	Upload(ctx context.Context, path string) (string, error)
}
