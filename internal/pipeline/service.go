package pipeline

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/label-line-mcp/internal/imaging"
	"github.com/ironsheep/label-line-mcp/internal/metrics"
	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// Metric source labels.
const (
	sourceImage      = "image"
	sourceDetections = "detections"
)

// Request carries per-call overrides of the service defaults.
type Request struct {
	// Pattern is the literal substring to look for. Empty uses the default.
	Pattern string

	// YThreshold overrides the vertical tolerance when non-nil.
	YThreshold *float64

	// Anchor overrides the grouping strategy when non-empty.
	Anchor string

	// IncludeCrop asks for a PNG crop of the matched line.
	IncludeCrop bool
}

// Timing holds per-stage wall time in milliseconds.
type Timing struct {
	DecodeMS     float64 `json:"decode_ms,omitempty"`
	PreprocessMS float64 `json:"preprocess_ms,omitempty"`
	OCRMS        float64 `json:"ocr_ms,omitempty"`
	ExtractMS    float64 `json:"extract_ms"`
}

// Result is the outcome of one extraction.
type Result struct {
	Match textline.Match `json:"match"`

	// Lines is the serialized text of every reconstructed line, top to bottom.
	Lines []string `json:"lines"`

	// Detections is the engine output the lines were built from.
	Detections textline.DetectionBatch `json:"detections"`

	Crop   *imaging.CropResult `json:"crop,omitempty"`
	Timing Timing              `json:"timing"`

	// Reconstructed holds the grouped lines for callers that draw them.
	Reconstructed []textline.Line `json:"-"`

	// Prepared is the image handed to the engine. Fragment coordinates are
	// in its pixel space. Nil for detection-only extractions.
	Prepared image.Image `json:"-"`
}

// Service runs decode, preprocess, OCR and line selection.
//
// Service holds no per-call state and is safe for concurrent use if its
// engine is.
type Service struct {
	engine ocr.Engine
	opts   Options
	logger *zap.Logger
}

// NewService creates an extraction service. A nil logger disables logging.
func NewService(engine ocr.Engine, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterExtractionMetrics()
	return &Service{engine: engine, opts: opts, logger: logger}
}

// Engine returns the OCR engine in use.
func (s *Service) Engine() ocr.Engine {
	return s.engine
}

// Options returns the service defaults.
func (s *Service) Options() Options {
	return s.opts
}

// ExtractImage decodes an encoded image and extracts the target line.
func (s *Service) ExtractImage(ctx context.Context, data []byte, req Request) (*Result, error) {
	call, err := s.resolve(req)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, err
	}

	start := time.Now()
	img, format, err := imaging.Decode(data)
	elapsed := time.Since(start)
	metrics.ObserveStage(string(StageDecode), elapsed)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, stageErr(StageDecode, err)
	}
	s.logger.Debug("image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)

	res, err := s.extractDecoded(ctx, img, call)
	if err != nil {
		return nil, err
	}
	res.Timing.DecodeMS = ms(elapsed)
	return res, nil
}

// ExtractDecoded extracts the target line from an already decoded image.
func (s *Service) ExtractDecoded(ctx context.Context, img image.Image, req Request) (*Result, error) {
	call, err := s.resolve(req)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, err
	}
	return s.extractDecoded(ctx, img, call)
}

// ExtractBatch runs line selection over detections recorded earlier.
func (s *Service) ExtractBatch(ctx context.Context, batch textline.DetectionBatch, req Request) (*Result, error) {
	call, err := s.resolve(req)
	if err != nil {
		metrics.RecordFailure(sourceDetections)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordFailure(sourceDetections)
		return nil, stageErr(StageExtract, err)
	}

	res, err := s.extract(batch, call)
	if err != nil {
		metrics.RecordFailure(sourceDetections)
		return nil, err
	}
	s.record(sourceDetections, res)
	return res, nil
}

// Prepare runs the preprocessing chain alone and returns the image the engine
// would see.
func (s *Service) Prepare(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, stageErr(StagePreprocess, err)
	}
	if s.opts.SkipPreprocess {
		return imaging.ResizeForOCR(img, s.opts.Preprocess.TargetHeight), nil
	}
	prepared, err := imaging.Preprocess(img, s.opts.Preprocess)
	if err != nil {
		return nil, stageErr(StagePreprocess, err)
	}
	return prepared, nil
}

// call is a request resolved against the service defaults.
type call struct {
	pattern     string
	opts        []textline.Option
	includeCrop bool
}

func (s *Service) resolve(req Request) (call, error) {
	c := call{pattern: req.Pattern, includeCrop: req.IncludeCrop}
	if c.pattern == "" {
		c.pattern = s.opts.Pattern
	}

	threshold := s.opts.YThreshold
	if req.YThreshold != nil {
		threshold = *req.YThreshold
	}
	anchor := s.opts.Anchor
	if req.Anchor != "" {
		anchor = textline.Anchor(req.Anchor)
	}

	c.opts = []textline.Option{textline.WithYThreshold(threshold), textline.WithAnchor(anchor)}
	if err := textline.ValidateOptions(c.opts...); err != nil {
		return call{}, stageErr(StageRequest, err)
	}
	return c, nil
}

func (s *Service) extractDecoded(ctx context.Context, img image.Image, c call) (*Result, error) {
	start := time.Now()
	prepared, err := s.Prepare(ctx, img)
	prepElapsed := time.Since(start)
	metrics.ObserveStage(string(StagePreprocess), prepElapsed)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, stageErr(StageOCR, err)
	}

	start = time.Now()
	batch, err := s.engine.Recognize(ctx, prepared)
	ocrElapsed := time.Since(start)
	metrics.ObserveStage(string(StageOCR), ocrElapsed)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, stageErr(StageOCR, err)
	}
	s.logger.Debug("ocr finished",
		zap.Int("detections", batch.Len()),
		zap.Duration("elapsed", ocrElapsed),
	)

	res, err := s.extract(batch, c)
	if err != nil {
		metrics.RecordFailure(sourceImage)
		return nil, err
	}
	res.Prepared = prepared
	res.Timing.PreprocessMS = ms(prepElapsed)
	res.Timing.OCRMS = ms(ocrElapsed)

	if c.includeCrop && res.Match.Found {
		crop, err := imaging.CropLine(prepared, res.Match.Fragments, s.opts.CropPadding, 1.0)
		if err != nil {
			s.logger.Warn("failed to crop matched line", zap.Error(err))
		} else {
			res.Crop = crop
		}
	}

	s.record(sourceImage, res)
	return res, nil
}

func (s *Service) extract(batch textline.DetectionBatch, c call) (*Result, error) {
	start := time.Now()
	match, lines, err := textline.Extract(batch, c.pattern, c.opts...)
	elapsed := time.Since(start)
	metrics.ObserveStage(string(StageExtract), elapsed)
	if err != nil {
		return nil, stageErr(StageExtract, err)
	}

	if batch == nil {
		batch = textline.DetectionBatch{}
	}
	return &Result{
		Match:         match,
		Lines:         textline.Texts(lines),
		Detections:    batch,
		Reconstructed: lines,
		Timing:        Timing{ExtractMS: ms(elapsed)},
	}, nil
}

func (s *Service) record(source string, res *Result) {
	metrics.RecordExtraction(source, res.Match.Found, len(res.Lines), res.Match.Confidence)
	s.logger.Info("extraction finished",
		zap.String("source", source),
		zap.Bool("found", res.Match.Found),
		zap.String("text", res.Match.Text),
		zap.Float64("confidence", res.Match.Confidence),
		zap.Int("lines", len(res.Lines)),
	)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
