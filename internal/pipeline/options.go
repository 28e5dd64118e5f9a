package pipeline

import (
	"github.com/ironsheep/label-line-mcp/internal/config"
	"github.com/ironsheep/label-line-mcp/internal/imaging"
	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// Options are the service-wide extraction defaults.
type Options struct {
	Preprocess imaging.PreprocessOptions

	// SkipPreprocess hands the resized color image to the engine instead of
	// the binarized one.
	SkipPreprocess bool

	YThreshold float64
	Pattern    string
	Anchor     textline.Anchor

	// CropPadding is the margin in pixels around a matched line crop.
	CropPadding int
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return Options{
		Preprocess:  imaging.DefaultPreprocessOptions(),
		YThreshold:  textline.DefaultYThreshold,
		Pattern:     textline.DefaultPattern,
		Anchor:      textline.FirstAnchor,
		CropPadding: 8,
	}
}

// OptionsFromConfig builds pipeline and OCR options from a validated config.
func OptionsFromConfig(cfg config.Config) (Options, ocr.Options, error) {
	anchor, err := textline.ParseAnchor(cfg.Extract.Anchor)
	if err != nil {
		return Options{}, ocr.Options{}, err
	}

	opts := DefaultOptions()
	opts.SkipPreprocess = cfg.Preprocess.Disabled
	opts.YThreshold = cfg.Extract.Threshold()
	opts.Pattern = cfg.Extract.Pattern
	opts.Anchor = anchor
	opts.Preprocess = imaging.PreprocessOptions{
		TargetHeight:  cfg.Preprocess.TargetHeight,
		GrayMode:      cfg.Preprocess.GrayMode,
		DenoiseRadius: valueOr(cfg.Preprocess.DenoiseRadius, opts.Preprocess.DenoiseRadius),
		ClipLimit:     valueOr(cfg.Preprocess.ClipLimit, opts.Preprocess.ClipLimit),
		TileGrid:      cfg.Preprocess.TileGrid,
		BlockSize:     cfg.Preprocess.BlockSize,
		Offset:        valueOr(cfg.Preprocess.Offset, opts.Preprocess.Offset),
	}

	ocrOpts := ocr.Options{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		PageSegMode:    cfg.OCR.PageSegMode,
	}
	return opts, ocrOpts, nil
}

// valueOr returns *p, or def when p is nil.
func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
