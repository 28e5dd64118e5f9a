package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultCacheSize is the number of decoded images an ImageCache keeps.
const DefaultCacheSize = 32

// ImageCache provides thread-safe caching of decoded label images keyed by path.
//
// The MCP server runs several tools against the same photo (extract, annotate,
// preprocess), so the decoded image is kept after the first Load.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Freshness
//
// Each entry remembers the file's size and modification time. Load stats the
// file on every call and reloads it when either has changed, so a photo saved
// over an existing path is picked up by the next call.
//
// # Memory Management
//
// At most limit images are held. Loading one more evicts the entry that was
// loaded earliest.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cacheEntry
	limit  int
	seq    uint64
}

type cacheEntry struct {
	img     image.Image
	size    int64
	modTime time.Time
	seq     uint64 // load order
}

func (e cacheEntry) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates an empty cache holding up to DefaultCacheSize images.
func NewImageCache() *ImageCache {
	return NewImageCacheWithLimit(DefaultCacheSize)
}

// NewImageCacheWithLimit creates an empty cache holding up to limit images.
// A limit below 1 is treated as 1.
func NewImageCacheWithLimit(limit int) *ImageCache {
	if limit < 1 {
		limit = 1
	}
	return &ImageCache{
		images: make(map[string]cacheEntry),
		limit:  limit,
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached
// or changed on disk since it was cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *ImageCache) Load(path string) (image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok {
		if entry.matches(fi) {
			return entry.img, nil
		}
		c.Evict(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	if _, exists := c.images[path]; !exists && len(c.images) >= c.limit {
		c.evictOldestLocked()
	}
	c.seq++
	c.images[path] = cacheEntry{
		img:     img,
		size:    fi.Size(),
		modTime: fi.ModTime(),
		seq:     c.seq,
	}
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

func (c *ImageCache) evictOldestLocked() {
	var oldest string
	var oldestSeq uint64
	for path, e := range c.images {
		if oldest == "" || e.seq < oldestSeq {
			oldest, oldestSeq = path, e.seq
		}
	}
	delete(c.images, oldest)
}

// Decode decodes an uploaded PNG, JPEG, or GIF image.
//
// Returns the image and the format name reported by the decoder.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("failed to decode image: empty input")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", or "unknown", taken from the file extension.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// NeedsUpscale reports whether preprocessing will enlarge the image to
	// reach the OCR target height.
	NeedsUpscale bool `json:"needs_upscale"`
}

// LoadImageInfo loads an image into the cache and returns its metadata.
//
// targetHeight is the preprocessing height used to fill NeedsUpscale; pass 0
// to skip that check.
func LoadImageInfo(cache *ImageCache, path string, targetHeight int) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
		NeedsUpscale:  targetHeight > 0 && bounds.Dy() < targetHeight,
	}, nil
}
