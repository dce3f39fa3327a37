package ebook

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/webp"

	"github.com/coreybb/storybook/models"
)

const defaultFetchTimeout = 30 * time.Second

// Image is a fetched illustration, normalized to a type the PDF writer embeds.
type Image struct {
	Data []byte
	MIME string // image/png, image/jpeg or image/gif
}

// PDFType is the fpdf image type name for the image.
func (img *Image) PDFType() string {
	switch img.MIME {
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return "PNG"
	}
}

// Fetcher retrieves image bytes for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// HTTPFetcher downloads remote images and decodes data: URLs in place.
// Requests are not retried.
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "image/*")
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	var data []byte
	switch {
	case strings.HasPrefix(url, "data:"):
		du, err := dataurl.DecodeString(url)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URL: %w", err)
		}
		data = du.Data
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		resp, err := f.client.R().SetContext(ctx).Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("failed to download image: %w", err)
			}
			return nil, fmt.Errorf("failed to download image: %w: %w", models.ErrImageUnavailable, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("image download returned status %d: %w", resp.StatusCode(), models.ErrImageUnavailable)
		}
		data = resp.Body()
	default:
		return nil, fmt.Errorf("unsupported image URL scheme: %.32q", url)
	}
	return normalizeImage(data)
}

// normalizeImage checks the image type and transcodes WebP to PNG.
func normalizeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"), mtype.Is("image/jpeg"), mtype.Is("image/gif"):
		return &Image{Data: data, MIME: mtype.String()}, nil
	case mtype.Is("image/webp"):
		src, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode webp image: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return nil, fmt.Errorf("failed to encode png image: %w", err)
		}
		return &Image{Data: buf.Bytes(), MIME: "image/png"}, nil
	default:
		return nil, fmt.Errorf("unsupported image type %s", mtype.String())
	}
}
