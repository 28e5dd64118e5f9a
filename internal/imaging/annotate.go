package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// AnnotationResult contains the image with reconstructed lines drawn on it
type AnnotationResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	LineCount   int    `json:"line_count"`
}

// AnnotateLines draws every fragment quad of every line, one hue per line,
// and labels each line with its index at the top-left of its first fragment.
//
// The line with index highlight (if >= 0) is drawn twice as thick.
func AnnotateLines(img image.Image, lines []textline.Line, highlight int) (*AnnotationResult, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	palette := linePalette(len(lines))
	for i, line := range lines {
		thickness := 1
		if i == highlight {
			thickness = 2
		}
		for _, f := range line.Fragments {
			drawQuad(canvas, f.Box, palette[i], thickness)
		}
		if len(line.Fragments) > 0 {
			first := line.Fragments[0].Box[0]
			drawLabel(canvas, int(first.X), int(first.Y)-2, strconv.Itoa(i), palette[i])
		}
	}

	encoded, err := EncodePNGBase64(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &AnnotationResult{
		Width:       canvas.Bounds().Dx(),
		Height:      canvas.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		LineCount:   len(lines),
	}, nil
}

// linePalette returns n evenly spaced, saturated hues.
func linePalette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		hue := 360 * float64(i) / float64(max(n, 1))
		colors[i] = colorful.Hcl(hue, 0.9, 0.55).Clamped()
	}
	return colors
}

// drawQuad outlines the four-point box p0-p1-p2-p3.
func drawQuad(img *image.RGBA, box [4]textline.Point, c color.Color, thickness int) {
	for i := range box {
		a, b := box[i], box[(i+1)%4]
		for t := 0; t < thickness; t++ {
			drawSegment(img, a.X+float64(t), a.Y+float64(t), b.X+float64(t), b.Y+float64(t), c)
		}
	}
}

// drawSegment plots a straight segment by stepping along its longer axis.
func drawSegment(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		setClipped(img, int(math.Round(x0)), int(math.Round(y0)), c)
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		setClipped(img, int(math.Round(x0+(x1-x0)*t)), int(math.Round(y0+(y1-y0)*t)), c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel writes text with its baseline at (x, y) on a dark backdrop.
func drawLabel(img *image.RGBA, x, y int, text string, fg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	if y-ascent < 0 {
		y = ascent
	}
	bg := image.Rect(x-1, y-ascent-1, x+width+1, y+2).Intersect(img.Bounds())
	draw.Draw(img, bg, image.NewUniform(color.RGBA{0, 0, 0, 180}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
