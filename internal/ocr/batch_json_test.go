package ocr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

func TestBatchFromJSON_Layouts(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "paddle nested",
			data: `[[ [[[0,0],[10,0],[10,20],[0,20]], ["1Z999", 0.93]] ]]`,
		},
		{
			name: "easyocr tuple",
			data: `[[ [[[0,0],[10,0],[10,20],[0,20]], "1Z999", 0.93] ]]`,
		},
		{
			name: "object",
			data: `[[ {"box":[{"x":0,"y":0},{"x":10,"y":0},{"x":10,"y":20},{"x":0,"y":20}],"text":"1Z999","confidence":0.93} ]]`,
		},
		{
			name: "object with pair points",
			data: `[[ {"box":[[0,0],[10,0],[10,20],[0,20]],"text":"1Z999","confidence":0.93} ]]`,
		},
	}

	want := textline.Detection{
		Box:        []textline.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 20}, {X: 0, Y: 20}},
		Text:       "1Z999",
		Confidence: 0.93,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := BatchFromJSON([]byte(tt.data))
			if err != nil {
				t.Fatalf("BatchFromJSON failed: %v", err)
			}
			if len(batch) != 1 || len(batch[0]) != 1 {
				t.Fatalf("shape: got %d blocks, want 1 block with 1 entry", len(batch))
			}
			got := batch[0][0]
			if got.Text != want.Text || got.Confidence != want.Confidence {
				t.Errorf("entry: got (%q, %v), want (%q, %v)", got.Text, got.Confidence, want.Text, want.Confidence)
			}
			if len(got.Box) != 4 {
				t.Fatalf("box points: got %d, want 4", len(got.Box))
			}
			for i := range want.Box {
				if got.Box[i] != want.Box[i] {
					t.Errorf("corner %d: got %+v, want %+v", i, got.Box[i], want.Box[i])
				}
			}
		})
	}
}

func TestBatchFromJSON_RoundTripsDetectionBatch(t *testing.T) {
	batch := textline.DetectionBatch{
		{
			{Box: []textline.Point{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4}}, Text: "A", Confidence: 0.5},
		},
		{},
	}
	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := BatchFromJSON(data)
	if err != nil {
		t.Fatalf("BatchFromJSON failed: %v", err)
	}
	if len(got) != 2 || got.Len() != 1 {
		t.Fatalf("shape: got %d blocks / %d entries, want 2 / 1", len(got), got.Len())
	}
	if got[0][0].Text != "A" {
		t.Errorf("Text: got %q, want A", got[0][0].Text)
	}
}

func TestBatchFromJSON_EmptyAndNull(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantBlocks int
	}{
		{"empty batch", `[]`, 0},
		{"empty block", `[[]]`, 1},
		{"null block", `[null]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := BatchFromJSON([]byte(tt.data))
			if err != nil {
				t.Fatalf("BatchFromJSON failed: %v", err)
			}
			if len(batch) != tt.wantBlocks || batch.Len() != 0 {
				t.Errorf("got %d blocks / %d entries, want %d / 0", len(batch), batch.Len(), tt.wantBlocks)
			}
		})
	}
}

func TestBatchFromJSON_KeepsMalformedBoxForNormalize(t *testing.T) {
	batch, err := BatchFromJSON([]byte(`[[ [[[0,0],[10,0],[10,20]], ["x", 0.5]] ]]`))
	if err != nil {
		t.Fatalf("BatchFromJSON failed: %v", err)
	}

	_, err = textline.Normalize(batch)
	if !errors.Is(err, textline.ErrMalformedGeometry) {
		t.Errorf("Normalize error: got %v, want ErrMalformedGeometry", err)
	}
}

func TestBatchFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"object root", `{"detections": []}`},
		{"block not array", `[42]`},
		{"entry scalar", `[[7]]`},
		{"too many parts", `[[ [[[0,0]], "a", 0.1, 9] ]]`},
		{"bad pair", `[[ [[[0,0]], ["a"]] ]]`},
		{"text not string", `[[ [[[0,0]], [5, 0.1]] ]]`},
		{"score not number", `[[ [[[0,0]], "a", "high"] ]]`},
		{"point wrong arity", `[[ [[[0,0,0]], ["a", 0.1]] ]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BatchFromJSON([]byte(tt.data)); err == nil {
				t.Error("BatchFromJSON should fail")
			}
		})
	}
}
