// Package imaging renders café logo thumbnails for the list view.
package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// DefaultSize is the thumbnail edge used by the cafés grid.
const DefaultSize = 64

var ErrUnsupported = errors.New("imaging: unable to decode image")

// Thumbnail scales the image to fit a size x size box, keeps its aspect
// ratio, centres it on a transparent canvas and encodes it as PNG.
func Thumbnail(raw []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("imaging: invalid image dimensions")
	}

	scaledW, scaledH := size, size
	if width > height {
		scaledH = max(1, height*size/width)
	} else if height > width {
		scaledW = max(1, width*size/height)
	}
	offsetX := (size - scaledW) / 2
	offsetY := (size - scaledH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	target := image.Rect(offsetX, offsetY, offsetX+scaledW, offsetY+scaledH)
	draw.CatmullRom.Scale(canvas, target, img, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(raw)); webpErr == nil {
		return decoded, nil
	}
	return nil, ErrUnsupported
}
