package illustration

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"github.com/vincent-petithory/dataurl"
)

// PlaceholderImageClient returns small solid-color PNGs as data URLs, so the
// whole pipeline can run offline. The color is derived from the prompt.
type PlaceholderImageClient struct{}

func (PlaceholderImageClient) GenerateImage(_ context.Context, req ImageRequest) (string, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Prompt))
	sum := h.Sum32()
	fill := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return dataurl.New(buf.Bytes(), "image/png").String(), nil
}
