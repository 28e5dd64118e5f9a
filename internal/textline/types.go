package textline

import (
	"sort"
	"strings"
)

// Point is a planar coordinate in engine units (usually pixels).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single entry produced by an OCR engine.
type Detection struct {
	// Box holds the corners of the detected quadrilateral in engine order.
	// Normalize requires exactly four points.
	Box []Point `json:"box"`

	// Text is the recognized string. It may be empty or garbled.
	Text string `json:"text"`

	// Confidence is the engine's score, conventionally 0.0 to 1.0.
	Confidence float64 `json:"confidence"`
}

// Block is one detection pass of an engine.
type Block []Detection

// DetectionBatch is the engine-agnostic output of one OCR run.
type DetectionBatch []Block

// Len returns the total number of detections across all blocks.
func (b DetectionBatch) Len() int {
	n := 0
	for _, block := range b {
		n += len(block)
	}
	return n
}

// Fragment is a normalized word detection with its centroid.
type Fragment struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Box        [4]Point `json:"box"`
	Centroid   Point    `json:"centroid"`
}

// Line is a group of fragments believed to form one printed line.
//
// Fragments are kept in grouping order (centroid Y, then X). Use Text for
// reading order.
type Line struct {
	Fragments []Fragment `json:"fragments"`
	AnchorY   float64    `json:"anchor_y"`
}

// Text returns the line in reading order: members sorted by centroid X and
// joined with a single space.
func (l Line) Text() string {
	ordered := make([]Fragment, len(l.Fragments))
	copy(ordered, l.Fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Centroid.X < ordered[j].Centroid.X
	})

	words := make([]string, len(ordered))
	for i, f := range ordered {
		words[i] = f.Text
	}
	return strings.Join(words, " ")
}

// AverageConfidence returns the unweighted mean confidence of the members,
// or 0 for a line without members.
func (l Line) AverageConfidence() float64 {
	if len(l.Fragments) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range l.Fragments {
		sum += f.Confidence
	}
	return sum / float64(len(l.Fragments))
}

// Texts serializes every line. This is the debug view of a reconstruction.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}

// Match is the outcome of target line selection. A zero Match means no line
// contained the pattern, which is a normal result rather than an error.
type Match struct {
	Found      bool       `json:"found"`
	Text       string     `json:"text,omitempty"`
	Confidence float64    `json:"confidence"`
	Fragments  []Fragment `json:"fragments"`
	// Index is the position of the matched line in the reconstruction, -1 if none.
	Index int `json:"index"`
}

// NoMatch returns the empty selection result.
func NoMatch() Match {
	return Match{Fragments: []Fragment{}, Index: -1}
}
