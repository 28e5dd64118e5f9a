// Package server implements the MCP (Model Context Protocol) server for
// shipping label line extraction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never interleave with protocol output.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load a label image and get metadata
//
// Line Extraction:
//   - label_extract_line: OCR a label and select the target line
//   - label_extract_from_detections: Select the target line from recorded OCR output
//   - label_group_lines: Show the reconstructed lines
//
// Debug Views:
//   - label_preprocess: The binarized image the engine sees
//   - label_annotate_lines: Word boxes colored by line
//   - label_ocr_info: Engine availability
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, which names the failing pipeline stage
//
// # Usage
//
//	svc := pipeline.NewService(ocr.NewTesseract(ocrOpts), opts, logger)
//	srv := server.New(svc, logger, version)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server stopped", zap.Error(err))
//	}
package server
