package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// BatchFromJSON decodes recorded engine output.
//
// Each block is a JSON array (null is read as an empty block). Entries may
// use any of these layouts, mixed freely:
//
//	[box, [text, score]]                           paddle style
//	[box, text, score]                             easyocr style
//	{"box": [{"x":..,"y":..}, ...], "text": .., "confidence": ..}
//
// where box is a list of [x, y] pairs or {"x","y"} objects. Boxes are not
// validated here; textline.Normalize rejects ones without four corners.
func BatchFromJSON(data []byte) (textline.DetectionBatch, error) {
	var blocks []json.RawMessage
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("detections must be a JSON array of blocks: %w", err)
	}

	batch := make(textline.DetectionBatch, 0, len(blocks))
	for bi, rawBlock := range blocks {
		var entries []json.RawMessage
		if err := json.Unmarshal(rawBlock, &entries); err != nil {
			return nil, fmt.Errorf("block %d: expected an array of detections: %w", bi, err)
		}

		block := make(textline.Block, 0, len(entries))
		for ei, rawEntry := range entries {
			det, err := decodeDetection(rawEntry)
			if err != nil {
				return nil, fmt.Errorf("block %d entry %d: %w", bi, ei, err)
			}
			block = append(block, det)
		}
		batch = append(batch, block)
	}
	return batch, nil
}

func decodeDetection(raw json.RawMessage) (textline.Detection, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			Box        []json.RawMessage `json:"box"`
			Text       string            `json:"text"`
			Confidence float64           `json:"confidence"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return textline.Detection{}, err
		}
		box, err := decodeBox(obj.Box)
		if err != nil {
			return textline.Detection{}, err
		}
		return textline.Detection{Box: box, Text: obj.Text, Confidence: obj.Confidence}, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return textline.Detection{}, fmt.Errorf("expected an array or object: %w", err)
	}

	var rawBox []json.RawMessage
	var text string
	var score float64

	switch len(parts) {
	case 2:
		var pair []json.RawMessage
		if err := json.Unmarshal(parts[1], &pair); err != nil || len(pair) != 2 {
			return textline.Detection{}, fmt.Errorf("expected [text, score] as second element")
		}
		if err := json.Unmarshal(pair[0], &text); err != nil {
			return textline.Detection{}, fmt.Errorf("text: %w", err)
		}
		if err := json.Unmarshal(pair[1], &score); err != nil {
			return textline.Detection{}, fmt.Errorf("score: %w", err)
		}
	case 3:
		if err := json.Unmarshal(parts[1], &text); err != nil {
			return textline.Detection{}, fmt.Errorf("text: %w", err)
		}
		if err := json.Unmarshal(parts[2], &score); err != nil {
			return textline.Detection{}, fmt.Errorf("score: %w", err)
		}
	default:
		return textline.Detection{}, fmt.Errorf("expected 2 or 3 elements, got %d", len(parts))
	}

	if err := json.Unmarshal(parts[0], &rawBox); err != nil {
		return textline.Detection{}, fmt.Errorf("box: %w", err)
	}
	box, err := decodeBox(rawBox)
	if err != nil {
		return textline.Detection{}, err
	}
	return textline.Detection{Box: box, Text: text, Confidence: score}, nil
}

func decodeBox(raw []json.RawMessage) ([]textline.Point, error) {
	box := make([]textline.Point, 0, len(raw))
	for i, rp := range raw {
		rp = bytes.TrimSpace(rp)
		if len(rp) > 0 && rp[0] == '{' {
			var p textline.Point
			if err := json.Unmarshal(rp, &p); err != nil {
				return nil, fmt.Errorf("box point %d: %w", i, err)
			}
			box = append(box, p)
			continue
		}
		var xy []float64
		if err := json.Unmarshal(rp, &xy); err != nil || len(xy) != 2 {
			return nil, fmt.Errorf("box point %d: expected [x, y]", i)
		}
		box = append(box, textline.Point{X: xy[0], Y: xy[1]})
	}
	return box, nil
}
