// Package ocr turns a prepared label image into a textline.DetectionBatch.
//
// The Engine interface is the only thing the extraction pipeline knows about
// text recognition. Two implementations ship with the package:
//
//   - Tesseract: word-level recognition through gosseract (requires cgo)
//   - Replay: returns a previously recorded batch, for tests and for
//     re-running extraction over saved engine output
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Binaries built with CGO_ENABLED=0 still compile; their Tesseract engine
// reports itself unavailable and every Recognize call fails with
// ErrUnavailable.
//
// # Word Boxes
//
// Tesseract reports axis-aligned rectangles. Each one is expanded into a
// four-corner box in top-left, top-right, bottom-right, bottom-left order so
// it has the same shape as the quadrilaterals of polygon-based engines.
// Confidence is rescaled from Tesseract's 0-100 range to 0.0-1.0.
//
// # Recorded Output
//
// BatchFromJSON accepts the nested
//
//	[[ [box, [text, score]], ... ], ...]
//
// layout produced by Python OCR wrappers as well as the DetectionBatch JSON
// encoding, so engine output captured elsewhere can be replayed.
package ocr
