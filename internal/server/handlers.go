package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/label-line-mcp/internal/imaging"
	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/pipeline"
	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "label_extract_line").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed",
			zap.String("tool", params.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool finished",
		zap.String("tool", params.Name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("cached_images", s.cache.Len()),
	)

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	switch name {
	// Image Information
	case "image_load":
		return s.handleImageLoad(args)

	// Line Extraction
	case "label_extract_line":
		return s.handleExtractLine(ctx, args)
	case "label_extract_from_detections":
		return s.handleExtractFromDetections(ctx, args)
	case "label_group_lines":
		return s.handleGroupLines(ctx, args)

	// Debug Views
	case "label_preprocess":
		return s.handlePreprocess(ctx, args)
	case "label_annotate_lines":
		return s.handleAnnotateLines(ctx, args)
	case "label_ocr_info":
		return s.svc.Engine().Info(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path, s.svc.Options().Preprocess.TargetHeight)
}

// === Line Extraction Handlers ===

// lineArgs holds the grouping and selection overrides shared by the
// extraction tools.
type lineArgs struct {
	Pattern    string   `json:"pattern"`
	YThreshold *float64 `json:"y_threshold"`
	Anchor     string   `json:"anchor"`
}

func (a lineArgs) request() pipeline.Request {
	return pipeline.Request{
		Pattern:    a.Pattern,
		YThreshold: a.YThreshold,
		Anchor:     a.Anchor,
	}
}

type extractLineArgs struct {
	lineArgs
	Path        string `json:"path"`
	IncludeCrop bool   `json:"include_crop"`
}

func (s *Server) handleExtractLine(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractLineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	req := a.request()
	req.IncludeCrop = a.IncludeCrop
	return s.svc.ExtractDecoded(ctx, img, req)
}

type extractFromDetectionsArgs struct {
	lineArgs
	Detections json.RawMessage `json:"detections"`
}

func (s *Server) handleExtractFromDetections(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractFromDetectionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Detections) == 0 {
		return nil, fmt.Errorf("detections is required")
	}
	batch, err := ocr.BatchFromJSON(a.Detections)
	if err != nil {
		return nil, err
	}
	return s.svc.ExtractBatch(ctx, batch, a.request())
}

// LineSummary describes one reconstructed line.
type LineSummary struct {
	Index             int     `json:"index"`
	Text              string  `json:"text"`
	AnchorY           float64 `json:"anchor_y"`
	AverageConfidence float64 `json:"average_confidence"`
	FragmentCount     int     `json:"fragment_count"`
}

// GroupLinesResult is the debug view of line reconstruction.
type GroupLinesResult struct {
	Lines      []LineSummary `json:"lines"`
	Detections int           `json:"detections"`
}

type groupLinesArgs struct {
	lineArgs
	Path       string          `json:"path"`
	Detections json.RawMessage `json:"detections"`
}

func (s *Server) handleGroupLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a groupLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var res *pipeline.Result
	switch {
	case len(a.Detections) > 0:
		batch, err := ocr.BatchFromJSON(a.Detections)
		if err != nil {
			return nil, err
		}
		if res, err = s.svc.ExtractBatch(ctx, batch, a.request()); err != nil {
			return nil, err
		}
	case a.Path != "":
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		if res, err = s.svc.ExtractDecoded(ctx, img, a.request()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("either path or detections is required")
	}

	return summarizeLines(res.Reconstructed, res.Detections.Len()), nil
}

func summarizeLines(lines []textline.Line, detections int) *GroupLinesResult {
	out := &GroupLinesResult{
		Lines:      make([]LineSummary, len(lines)),
		Detections: detections,
	}
	for i, l := range lines {
		out.Lines[i] = LineSummary{
			Index:             i,
			Text:              l.Text(),
			AnchorY:           l.AnchorY,
			AverageConfidence: l.AverageConfidence(),
			FragmentCount:     len(l.Fragments),
		}
	}
	return out
}

// === Debug View Handlers ===

// PreprocessResult contains the image the OCR engine would see.
type PreprocessResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handlePreprocess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	prepared, err := s.svc.Prepare(ctx, img)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &PreprocessResult{
		Width:       prepared.Bounds().Dx(),
		Height:      prepared.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

type annotateLinesArgs struct {
	lineArgs
	Path string `json:"path"`
}

func (s *Server) handleAnnotateLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a annotateLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.ExtractDecoded(ctx, img, a.request())
	if err != nil {
		return nil, err
	}

	// Boxes are in the resized frame; draw on the resized color photo.
	canvas := imaging.ResizeForOCR(img, s.svc.Options().Preprocess.TargetHeight)
	return imaging.AnnotateLines(canvas, res.Reconstructed, res.Match.Index)
}
