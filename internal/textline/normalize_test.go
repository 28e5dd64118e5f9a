package textline

import (
	"errors"
	"testing"
)

// rect builds an axis-aligned detection centered on (cx, cy).
func rect(text string, conf, cx, cy float64) Detection {
	return Detection{
		Box: []Point{
			{X: cx - 20, Y: cy - 10},
			{X: cx + 20, Y: cy - 10},
			{X: cx + 20, Y: cy + 10},
			{X: cx - 20, Y: cy + 10},
		},
		Text:       text,
		Confidence: conf,
	}
}

func TestNormalize_Empty(t *testing.T) {
	tests := []struct {
		name  string
		batch DetectionBatch
	}{
		{"nil batch", nil},
		{"empty batch", DetectionBatch{}},
		{"empty blocks", DetectionBatch{{}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragments, err := Normalize(tt.batch)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if fragments == nil {
				t.Fatal("Normalize returned nil slice, want empty")
			}
			if len(fragments) != 0 {
				t.Errorf("len: got %d, want 0", len(fragments))
			}
		})
	}
}

func TestNormalize_Centroid(t *testing.T) {
	// Skewed quadrilateral: centroid is the plain corner mean.
	batch := DetectionBatch{{
		{
			Box:        []Point{{X: 0, Y: 0}, {X: 10, Y: 2}, {X: 12, Y: 12}, {X: 2, Y: 10}},
			Text:       "ABC",
			Confidence: 0.5,
		},
	}}

	fragments, err := Normalize(batch)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("len: got %d, want 1", len(fragments))
	}

	c := fragments[0].Centroid
	if c.X != 6 || c.Y != 6 {
		t.Errorf("Centroid: got (%v,%v), want (6,6)", c.X, c.Y)
	}
	if fragments[0].Box[2] != (Point{X: 12, Y: 12}) {
		t.Errorf("Box corner order not preserved: %v", fragments[0].Box)
	}
}

func TestNormalize_OrderAndDuplicates(t *testing.T) {
	batch := DetectionBatch{
		{rect("B", 0.9, 100, 10), rect("A", 0.9, 0, 10)},
		{rect("", 0.1, 50, 50), rect("A", 0.9, 0, 10)},
	}

	fragments, err := Normalize(batch)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []string{"B", "A", "", "A"}
	if len(fragments) != len(want) {
		t.Fatalf("len: got %d, want %d", len(fragments), len(want))
	}
	for i, w := range want {
		if fragments[i].Text != w {
			t.Errorf("fragment %d: got %q, want %q", i, fragments[i].Text, w)
		}
	}
}

func TestNormalize_ConfidenceNotClamped(t *testing.T) {
	batch := DetectionBatch{{rect("X", 1.7, 0, 0), rect("Y", -0.3, 0, 0)}}

	fragments, err := Normalize(batch)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if fragments[0].Confidence != 1.7 || fragments[1].Confidence != -0.3 {
		t.Errorf("confidence altered: got %v, %v", fragments[0].Confidence, fragments[1].Confidence)
	}
}

func TestNormalize_MalformedGeometry(t *testing.T) {
	tests := []struct {
		name   string
		points int
	}{
		{"no points", 0},
		{"triangle", 3},
		{"pentagon", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := Detection{Box: make([]Point, tt.points), Text: "bad"}
			batch := DetectionBatch{{rect("ok", 0.9, 0, 0)}, {rect("ok", 0.9, 0, 0), bad}}

			fragments, err := Normalize(batch)
			if err == nil {
				t.Fatal("Normalize should fail for malformed box")
			}
			if fragments != nil {
				t.Error("Normalize should not return partial results")
			}
			if !errors.Is(err, ErrMalformedGeometry) {
				t.Errorf("error should wrap ErrMalformedGeometry: %v", err)
			}

			var gerr *GeometryError
			if !errors.As(err, &gerr) {
				t.Fatalf("error should be *GeometryError, got %T", err)
			}
			if gerr.Block != 1 || gerr.Entry != 1 || gerr.Points != tt.points {
				t.Errorf("GeometryError: got block=%d entry=%d points=%d", gerr.Block, gerr.Entry, gerr.Points)
			}
		})
	}
}

func TestDetectionBatch_Len(t *testing.T) {
	batch := DetectionBatch{{rect("a", 1, 0, 0)}, {}, {rect("b", 1, 0, 0), rect("c", 1, 0, 0)}}
	if batch.Len() != 3 {
		t.Errorf("Len: got %d, want 3", batch.Len())
	}
}
