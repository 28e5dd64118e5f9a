//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

const tesseractBackend = "gosseract"

// Tesseract recognizes words with the Tesseract engine.
//
// A new gosseract client is created per call, so a Tesseract value is safe
// for concurrent use.
type Tesseract struct {
	opts Options
}

// NewTesseract creates a Tesseract engine. Zero-valued options fall back to
// DefaultOptions.
func NewTesseract(opts Options) *Tesseract {
	def := DefaultOptions()
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.PageSegMode == 0 {
		opts.PageSegMode = def.PageSegMode
	}
	return &Tesseract{opts: opts}
}

// Recognize runs word-level OCR on img and returns one block.
//
// Tesseract itself cannot be interrupted; ctx is checked before the image is
// handed over and again once recognition returns.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (textline.DetectionBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(t.opts.Language, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.opts.PageSegMode)); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence,
			Box:        box.Box,
		})
	}

	return textline.DetectionBatch{BlockFromWords(words)}, nil
}

// Info returns information about OCR availability.
//
// The engine is reported available when the configured language data can be
// found.
func (t *Tesseract) Info() Info {
	info := Info{
		Backend:      tesseractBackend,
		Version:      gosseract.Version(),
		Language:     t.opts.Language,
		TessdataPath: t.opts.TessdataPrefix,
	}

	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Languages = langs

	for _, lang := range strings.Split(t.opts.Language, "+") {
		if !slices.Contains(langs, lang) {
			info.Error = fmt.Sprintf("language data %q not installed", lang)
			return info
		}
	}

	info.Available = true
	return info
}
