package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Grayscale conversion modes.
const (
	GrayLuma      = "luma"
	GrayLightness = "lightness"
)

// PreprocessOptions controls how a label photo is prepared for OCR.
type PreprocessOptions struct {
	// TargetHeight is the minimum height in pixels. Shorter images are upscaled
	// with a cubic filter, preserving aspect ratio. Taller images are untouched.
	TargetHeight int

	// GrayMode is GrayLuma (weighted RGB) or GrayLightness (CIE L*).
	GrayMode string

	// DenoiseRadius is the median filter radius. 0 disables denoising.
	DenoiseRadius int

	// ClipLimit bounds each tile histogram bin during contrast equalization,
	// as a multiple of the mean bin height. 0 disables equalization.
	ClipLimit float64

	// TileGrid is the number of equalization tiles along each axis.
	TileGrid int

	// BlockSize is the odd window size of the adaptive threshold.
	BlockSize int

	// Offset is subtracted from the local mean before thresholding.
	Offset float64
}

// DefaultPreprocessOptions returns the settings tuned for shipping labels.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		TargetHeight:  800,
		GrayMode:      GrayLuma,
		DenoiseRadius: 1,
		ClipLimit:     2.0,
		TileGrid:      8,
		BlockSize:     31,
		Offset:        10,
	}
}

// Validate reports options that Preprocess cannot honour.
func (o PreprocessOptions) Validate() error {
	if o.GrayMode != GrayLuma && o.GrayMode != GrayLightness {
		return fmt.Errorf("unknown gray mode %q", o.GrayMode)
	}
	if o.DenoiseRadius < 0 {
		return fmt.Errorf("denoise radius must be >= 0, got %d", o.DenoiseRadius)
	}
	if o.ClipLimit < 0 {
		return fmt.Errorf("clip limit must be >= 0, got %v", o.ClipLimit)
	}
	if o.ClipLimit > 0 && o.TileGrid < 1 {
		return fmt.Errorf("tile grid must be >= 1, got %d", o.TileGrid)
	}
	if o.BlockSize < 3 || o.BlockSize%2 == 0 {
		return fmt.Errorf("block size must be odd and >= 3, got %d", o.BlockSize)
	}
	return nil
}

// Preprocess runs the OCR preparation chain on a label photo:
//
//  1. Resize: upscale to TargetHeight when the image is shorter
//  2. Grayscale: luma or perceptual lightness
//  3. Denoise: median filter
//  4. Contrast: tile-based clipped histogram equalization
//  5. Binarize: adaptive threshold against a Gaussian local mean
//
// The result is a black-on-white binary image with the same bounds origin at
// (0, 0).
func Preprocess(img image.Image, opts PreprocessOptions) (*image.Gray, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess options: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot preprocess empty image")
	}

	resized := ResizeForOCR(img, opts.TargetHeight)
	gray := ToGray(resized, opts.GrayMode)

	if opts.DenoiseRadius > 0 {
		gray = Denoise(gray, opts.DenoiseRadius)
	}
	if opts.ClipLimit > 0 {
		gray = EqualizeContrast(gray, opts.ClipLimit, opts.TileGrid)
	}

	return Binarize(gray, opts.BlockSize, opts.Offset), nil
}

// ResizeForOCR upscales img to targetHeight with a Catmull-Rom filter when it
// is shorter. Images already tall enough are returned unchanged.
func ResizeForOCR(img image.Image, targetHeight int) image.Image {
	h := img.Bounds().Dy()
	if targetHeight <= 0 || h >= targetHeight {
		return img
	}
	scale := float64(targetHeight) / float64(h)
	w := int(math.Round(float64(img.Bounds().Dx()) * scale))
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, targetHeight, imaging.CatmullRom)
}

// ToGray converts img to 8-bit grayscale.
//
// GrayLuma uses bild's weighted RGB conversion. GrayLightness maps CIE L*
// to 0-255, which lifts saturated inks such as blue or red stamps closer to
// their perceived brightness.
func ToGray(img image.Image, mode string) *image.Gray {
	if mode != GrayLightness {
		return grayFromRGBA(effect.Grayscale(img))
	}

	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				// Fully transparent pixels read as paper.
				out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: 255})
				continue
			}
			l, _, _ := c.Lab()
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: clampByte(l * 255)})
		}
	}
	return out
}

// Denoise applies a median filter of the given radius.
func Denoise(gray *image.Gray, radius int) *image.Gray {
	return grayFromRGBA(effect.Median(gray, float64(radius)))
}

// EqualizeContrast performs contrast-limited adaptive histogram equalization.
//
// The image is split into a grid x grid set of tiles. Each tile's histogram
// is clipped at clipLimit times the mean bin height, the excess is spread
// evenly across all bins, and the cumulative distribution becomes the tile's
// lookup table; a clipLimit of 0 equalizes without clipping. Pixels blend the
// lookup tables of the four nearest tile centers bilinearly so tile borders
// do not show.
func EqualizeContrast(gray *image.Gray, clipLimit float64, grid int) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || grid < 1 {
		return gray
	}

	tw := (w + min(grid, w) - 1) / min(grid, w)
	th := (h + min(grid, h) - 1) / min(grid, h)
	gx := (w + tw - 1) / tw
	gy := (h + th - 1) / th

	luts := make([][256]uint8, gx*gy)
	for ty := 0; ty < gy; ty++ {
		for tx := 0; tx < gx; tx++ {
			r := image.Rect(b.Min.X+tx*tw, b.Min.Y+ty*th, b.Min.X+(tx+1)*tw, b.Min.Y+(ty+1)*th).Intersect(b)
			hist := histogram.NewRGBAHistogram(gray.SubImage(r))
			luts[ty*gx+tx] = tileLUT(hist.R.Bins, r.Dx()*r.Dy(), clipLimit)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1, wy := tileNeighbors(y, th, gy)
		for x := 0; x < w; x++ {
			x0, x1, wx := tileNeighbors(x, tw, gx)
			v := gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y

			top := lerp(float64(luts[y0*gx+x0][v]), float64(luts[y0*gx+x1][v]), wx)
			bottom := lerp(float64(luts[y1*gx+x0][v]), float64(luts[y1*gx+x1][v]), wx)
			out.SetGray(x, y, color.Gray{Y: clampByte(lerp(top, bottom, wy))})
		}
	}
	return out
}

// tileLUT builds the equalization table of one tile.
func tileLUT(bins []int, area int, clipLimit float64) [256]uint8 {
	var hist [256]int
	copy(hist[:], bins)

	if clipLimit > 0 {
		limit := int(clipLimit * float64(area) / 256)
		if limit < 1 {
			limit = 1
		}
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		inc, rem := excess/256, excess%256
		for i := range hist {
			hist[i] += inc
			if i < rem {
				hist[i]++
			}
		}
	}

	var lut [256]uint8
	cdf := 0
	for i, n := range hist {
		cdf += n
		lut[i] = clampByte(float64(cdf) * 255 / float64(area))
	}
	return lut
}

// tileNeighbors returns the two tile indices around pos and the weight of the
// second one.
func tileNeighbors(pos, size, count int) (int, int, float64) {
	f := (float64(pos)+0.5)/float64(size) - 0.5
	i0 := int(math.Floor(f))
	weight := f - float64(i0)
	i1 := i0 + 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 > count-1 {
		i1 = count - 1
	}
	if i0 > count-1 {
		i0 = count - 1
	}
	return i0, i1, weight
}

// Binarize applies an adaptive threshold: a pixel becomes white (255) when it
// is brighter than the Gaussian-weighted mean of its blockSize neighbourhood
// minus offset, and black (0) otherwise.
func Binarize(gray *image.Gray, blockSize int, offset float64) *image.Gray {
	b := gray.Bounds()
	mean := blur.Gaussian(gray, float64(blockSize-1)/2)

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			local := float64(mean.RGBAAt(mean.Bounds().Min.X+x, mean.Bounds().Min.Y+y).R)
			if v > local-offset {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// grayFromRGBA copies the red channel of a gray RGBA image into an
// image.Gray with a (0, 0) origin.
func grayFromRGBA(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
