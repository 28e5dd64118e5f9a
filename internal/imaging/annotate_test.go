package imaging

import (
	"encoding/base64"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

func TestAnnotateLines(t *testing.T) {
	img := createInMemoryImage(200, 100, color.RGBA{255, 255, 255, 255})
	lines := []textline.Line{
		{Fragments: []textline.Fragment{fragmentAt("1Z999", 20, 10, 60, 30)}, AnchorY: 20},
		{Fragments: []textline.Fragment{fragmentAt("SHIP", 20, 60, 80, 80)}, AnchorY: 70},
	}

	result, err := AnnotateLines(img, lines, 0)
	if err != nil {
		t.Fatalf("AnnotateLines failed: %v", err)
	}

	if result.Width != 200 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 200x100", result.Width, result.Height)
	}
	if result.LineCount != 2 {
		t.Errorf("LineCount: got %d, want 2", result.LineCount)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	out, err := png.Decode(strings.NewReader(string(decoded)))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}

	// Bottom-right corners of both quads are outlined.
	for _, p := range [][2]int{{60, 30}, {80, 80}} {
		r, g, b, _ := out.At(p[0], p[1]).RGBA()
		if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
			t.Errorf("corner (%d,%d) not drawn", p[0], p[1])
		}
	}

	// Far from any box the paper is untouched.
	r, g, b, _ := out.At(150, 45).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("background (150,45): got (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestAnnotateLines_NoLines(t *testing.T) {
	img := createInMemoryImage(30, 20, color.RGBA{255, 255, 255, 255})

	result, err := AnnotateLines(img, nil, -1)
	if err != nil {
		t.Fatalf("AnnotateLines failed: %v", err)
	}
	if result.LineCount != 0 {
		t.Errorf("LineCount: got %d, want 0", result.LineCount)
	}
}

func TestLinePalette_DistinctHues(t *testing.T) {
	palette := linePalette(4)
	seen := make(map[[3]uint32]bool)
	for _, c := range palette {
		r, g, b, _ := c.RGBA()
		seen[[3]uint32{r, g, b}] = true
	}
	if len(seen) != 4 {
		t.Errorf("palette colors: got %d distinct, want 4", len(seen))
	}
}
