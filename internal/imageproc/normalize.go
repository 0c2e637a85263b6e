// Package imageproc turns uploaded bytes into the image that is sent to the
// vision model: decoded, flattened to three channels and capped in size.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kdduha/caption-generator/internal/metrics"

	_ "golang.org/x/image/webp"
)

const DefaultMaxDimension = 1024

var pdfMagic = []byte("%PDF-")

// Image is a normalized upload. It is owned by a single request.
type Image struct {
	pix    *image.NRGBA
	Format string
}

func (i *Image) NRGBA() *image.NRGBA {
	return i.pix
}

func (i *Image) Width() int {
	return i.pix.Bounds().Dx()
}

func (i *Image) Height() int {
	return i.pix.Bounds().Dy()
}

// DataURL encodes the image as JPEG and wraps it into a data URL
// accepted by chat completions image parts.
func (i *Image) DataURL(quality int) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, i.pix, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Normalize decodes data, drops alpha and shrinks the result with a Lanczos
// filter so that the longest side is at most maxDimension. Smaller images
// keep their size.
func Normalize(data []byte, maxDimension int) (img *Image, err error) {
	start := time.Now()
	format := "unknown"
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.FilePreprocessTotal(status, format)
		metrics.FilePreprocessDuration(status, format, time.Since(start))
	}()

	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}

	src, detected, err := decode(data)
	if detected != "" {
		format = detected
	}
	if err != nil {
		return nil, err
	}

	// Flatten before resampling: Lanczos weights by alpha and would turn
	// transparent pixels black.
	flat := imaging.Clone(src)
	dropAlpha(flat)
	dst := imaging.Fit(flat, maxDimension, maxDimension, imaging.Lanczos)

	return &Image{pix: dst, Format: format}, nil
}

func decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: errors.New("empty image data")}
	}

	if bytes.HasPrefix(data, pdfMagic) {
		img, err := rasterizePDF(data)
		if err != nil {
			return nil, "pdf", &DecodeError{Err: err}
		}
		return img, "pdf", nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, &DecodeError{Err: err}
	}
	return img, format, nil
}

// dropAlpha makes every pixel opaque while keeping its colour, which is what
// a plain RGB conversion does with non-premultiplied input.
func dropAlpha(img *image.NRGBA) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 3; x < len(row); x += 4 {
			row[x] = 0xff
		}
	}
}
