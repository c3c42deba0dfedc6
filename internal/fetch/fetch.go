// Package fetch downloads and decodes the input image for a job.
package fetch

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"net/http"
	"time"

	// Input images arrive as JPEG, PNG or GIF.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"wanvideo/internal/pkg/errors"
)

// DefaultTimeout bounds the whole download including body read.
const DefaultTimeout = 30 * time.Second

// HTTPFetcher retrieves images over HTTP and decodes them to RGB.
type HTTPFetcher struct {
	client *http.Client
}

func New() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Fetch downloads url and returns the decoded 3-channel image. Every
// failure mode (network, timeout, decode) surfaces as one download error
// carrying the source URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	img, err := f.fetch(ctx, url)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeDownload, "fetch.image",
			fmt.Sprintf("failed to download image from %s", url))
	}
	return img, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", res.StatusCode)
	}

	img, format, err := image.Decode(res.Body)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	_ = format

	return toRGB(img), nil
}

// toRGB redraws the image into an RGBA buffer; alpha is fully opaque after
// the draw and ignored downstream, leaving 3 usable channels.
func toRGB(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
