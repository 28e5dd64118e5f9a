package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// ErrUnavailable is returned when the OCR backend cannot run in this build
// or on this host.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Engine recognizes words in an image.
type Engine interface {
	// Recognize returns the detected words of img. Box coordinates are in
	// img's pixel space.
	Recognize(ctx context.Context, img image.Image) (textline.DetectionBatch, error)

	// Info describes the backend and whether it can run.
	Info() Info
}

// Info contains information about the OCR subsystem.
type Info struct {
	Available    bool     `json:"available"`
	Version      string   `json:"version,omitempty"`
	Error        string   `json:"error,omitempty"`
	Backend      string   `json:"backend"`
	Language     string   `json:"language,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	TessdataPath string   `json:"tessdata_path,omitempty"`
}

// Options configures the Tesseract engine.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "eng+deu".
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses the library default (TESSDATA_PREFIX or the build path).
	TessdataPrefix string

	// PageSegMode is Tesseract's page segmentation mode. 11 (sparse text)
	// suits labels, where words are scattered rather than laid out in
	// paragraphs.
	PageSegMode int
}

// DefaultOptions returns English sparse-text recognition.
func DefaultOptions() Options {
	return Options{
		Language:    "eng",
		PageSegMode: 11,
	}
}

// Word is one recognized word with an axis-aligned box.
type Word struct {
	Text string
	// Confidence on Tesseract's 0-100 scale.
	Confidence float64
	Box        image.Rectangle
}

// BlockFromWords converts word rectangles into a detection block.
// Blank words are dropped.
func BlockFromWords(words []Word) textline.Block {
	block := make(textline.Block, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		block = append(block, textline.Detection{
			Box:        rectQuad(w.Box),
			Text:       w.Text,
			Confidence: w.Confidence / 100.0,
		})
	}
	return block
}

// rectQuad returns the corners of r as top-left, top-right, bottom-right,
// bottom-left.
func rectQuad(r image.Rectangle) []textline.Point {
	x1, y1 := float64(r.Min.X), float64(r.Min.Y)
	x2, y2 := float64(r.Max.X), float64(r.Max.Y)
	return []textline.Point{
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
		{X: x1, Y: y2},
	}
}

// Replay is an Engine that returns a fixed batch regardless of the image.
type Replay struct {
	Batch textline.DetectionBatch
	// Err, when set, is returned by every Recognize call instead of Batch.
	Err error
}

// Recognize returns the recorded batch.
func (r *Replay) Recognize(ctx context.Context, _ image.Image) (textline.DetectionBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Batch, nil
}

// Info reports the replay backend as always available.
func (r *Replay) Info() Info {
	return Info{Available: true, Backend: "replay"}
}
