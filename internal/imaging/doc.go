// Package imaging prepares shipping label photos for OCR and renders the
// debug views of the extraction pipeline.
//
// The preparation chain mirrors what a text engine needs from a handheld
// photo: enough pixel height, a single channel, speckle removal, even
// contrast across the label and finally a clean black-on-white bitmap.
// See Preprocess for the individual stages and PreprocessOptions for their
// knobs.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Fragment boxes produced by OCR refer to the resized image, so CropLine and
// AnnotateLines must be given ResizeForOCR's output (or the preprocessed
// bitmap), not the original photo.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Performance Considerations
//
// For repeated operations on the same image, use ImageCache to avoid redundant
// disk reads. The cache reloads files that change on disk and keeps a bounded
// number of images; NewImageCacheWithLimit sets the bound.
package imaging
