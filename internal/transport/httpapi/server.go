// Package httpapi exposes line extraction over HTTP using a chi router.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/ironsheep/label-line-mcp/internal/logger"
	"github.com/ironsheep/label-line-mcp/internal/metrics"
	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/pipeline"
	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeInvalidConfig     = "invalid_config"
	CodeMalformedGeometry = "malformed_geometry"
	CodeDecodeFailed      = "decode_failed"
	CodePayloadTooLarge   = "payload_too_large"
	CodeOCRUnavailable    = "ocr_unavailable"
	CodeInternal          = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetectionsRequest is the body of POST /v1/extract/detections.
type DetectionsRequest struct {
	Detections json.RawMessage `json:"detections"`
	Pattern    string          `json:"pattern,omitempty"`
	YThreshold *float64        `json:"y_threshold,omitempty"`
	Anchor     string          `json:"anchor,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string   `json:"status"`
	OCR    ocr.Info `json:"ocr"`
}

// errorHandler tries to handle a pipeline error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the extraction API.
type Server struct {
	svc           *pipeline.Service
	logger        *zap.Logger
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxUpload caps request bodies in bytes.
func NewServer(svc *pipeline.Service, maxUpload int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:       svc,
		logger:    logger,
		maxUpload: maxUpload,
		errorHandlers: []errorHandler{
			sentinelHandler(textline.ErrInvalidConfig, http.StatusBadRequest, CodeInvalidConfig),
			sentinelHandler(textline.ErrMalformedGeometry, http.StatusBadRequest, CodeMalformedGeometry),
			sentinelHandler(ocr.ErrUnavailable, http.StatusServiceUnavailable, CodeOCRUnavailable),
			stageHandler(pipeline.StageDecode, http.StatusBadRequest, CodeDecodeFailed),
		},
	}
}

// Routes builds the router with recovery, request IDs, access logging and metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.Extract)
		r.Post("/extract/detections", s.ExtractDetections)
	})
	return r
}

// Extract handles POST /v1/extract.
//
// The image is the raw request body, or the "image" part of a multipart
// form. Query parameters pattern, y_threshold, anchor and include_crop
// override the service defaults.
func (s *Server) Extract(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	data, err := s.readImage(w, r)
	if err != nil {
		if writeTooLarge(w, err, "image") {
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := s.svc.ExtractImage(r.Context(), data, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExtractDetections handles POST /v1/extract/detections.
func (s *Server) ExtractDetections(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var body DetectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeTooLarge(w, err, "request body") {
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Detections) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "detections is required")
		return
	}

	batch, err := ocr.BatchFromJSON(body.Detections)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := s.svc.ExtractBatch(r.Context(), batch, pipeline.Request{
		Pattern:    body.Pattern,
		YThreshold: body.YThreshold,
		Anchor:     body.Anchor,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Health handles GET /healthz. An unavailable OCR engine reports 503,
// although detection replay keeps working.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	info := s.svc.Engine().Info()
	if !info.Available {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", OCR: info})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", OCR: info})
}

func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image part: %w", err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func requestFromQuery(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := pipeline.Request{
		Pattern: q.Get("pattern"),
		Anchor:  q.Get("anchor"),
	}
	if v := q.Get("y_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("y_threshold: %w", err)
		}
		req.YThreshold = &f
	}
	if v := q.Get("include_crop"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("include_crop: %w", err)
		}
		req.IncludeCrop = b
	}
	return req, nil
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("extraction failed", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// stageHandler matches any failure of the given pipeline stage.
func stageHandler(stage pipeline.Stage, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		var se *pipeline.StageError
		if !errors.As(err, &se) || se.Stage != stage {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// writeTooLarge reports a body cut off by http.MaxBytesReader as 413.
// Returns true if handled.
func writeTooLarge(w http.ResponseWriter, err error, what string) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("%s exceeds %d bytes", what, tooLarge.Limit))
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one log line per request and propagates X-Request-ID.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
