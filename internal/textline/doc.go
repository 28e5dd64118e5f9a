// Package textline rebuilds printed text lines from unordered OCR word detections
// and picks the line that carries a target pattern.
//
// OCR engines return a flat collection of word fragments, each with a bounding
// quadrilateral and a confidence score, but no notion of which fragments share
// a printed line. This package recovers that structure from geometry alone.
//
// # Pipeline
//
// Data flows one way through three steps:
//
//  1. Normalize: flatten a DetectionBatch into Fragments with centroids
//  2. Group: cluster Fragments into Lines by vertical proximity
//  3. Select: serialize each Line and keep the best-confidence match
//
// Extract runs all three steps.
//
// # Line Grouping
//
// Fragments are sorted by (centroid Y, centroid X) and scanned top to bottom.
// A fragment joins the current line when its centroid Y lies within the
// vertical threshold of the line's anchor. With the default FirstAnchor
// strategy the anchor is the Y of the first fragment placed in the line and
// never moves; RunningMeanAnchor follows the mean Y of the line's members.
//
// A line is serialized by re-sorting its members on centroid X and joining
// their text with single spaces. Grouping order and reading order differ, so
// the re-sort is always performed.
//
// # Coordinate System
//
// Coordinates use the engine's convention, normally image pixels with the
// origin at the top-left corner and Y increasing downward.
//
// # Thread Safety
//
// Every function in this package is pure. Inputs are never mutated and no
// package-level state exists, so calls may run concurrently.
package textline
