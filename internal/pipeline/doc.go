// Package pipeline wires image decoding, preprocessing, OCR and target line
// selection into one call.
//
// A Service is built from an ocr.Engine and Options (usually derived from
// config via OptionsFromConfig). ExtractImage takes an encoded upload,
// ExtractDecoded an image already in memory, and ExtractBatch skips straight
// to line reconstruction for detections recorded earlier.
//
// Failures are reported as *StageError naming the stage that failed; the
// underlying textline, imaging or ocr error stays reachable through
// errors.Is and errors.As.
package pipeline
