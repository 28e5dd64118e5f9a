//go:build !cgo

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// Tesseract is unavailable in binaries built without cgo.
type Tesseract struct {
	opts Options
}

// NewTesseract creates a Tesseract engine that always fails.
func NewTesseract(opts Options) *Tesseract {
	return &Tesseract{opts: opts}
}

// Recognize always returns ErrUnavailable.
func (t *Tesseract) Recognize(context.Context, image.Image) (textline.DetectionBatch, error) {
	return nil, fmt.Errorf("tesseract requires a cgo build: %w", ErrUnavailable)
}

// Info reports the engine as unavailable.
func (t *Tesseract) Info() Info {
	return Info{
		Backend:  "gosseract",
		Language: t.opts.Language,
		Error:    "built without cgo",
	}
}
