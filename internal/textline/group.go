package textline

import (
	"fmt"
	"math"
	"sort"
)

// DefaultYThreshold is the default vertical tolerance, in engine units.
const DefaultYThreshold = 25.0

// Anchor names the strategy used to decide line membership.
type Anchor string

const (
	// FirstAnchor pins a line's reference Y to its first fragment.
	FirstAnchor Anchor = "first"

	// RunningMeanAnchor moves a line's reference Y to the mean of its members.
	RunningMeanAnchor Anchor = "running-mean"
)

// ParseAnchor converts a configuration string to an Anchor. The empty string
// selects FirstAnchor.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case "", FirstAnchor:
		return FirstAnchor, nil
	case RunningMeanAnchor:
		return RunningMeanAnchor, nil
	default:
		return "", &ConfigError{Field: "anchor", Reason: fmt.Sprintf("unknown strategy %q", s)}
	}
}

// Option adjusts grouping parameters.
type Option func(*settings)

type settings struct {
	yThresh float64
	anchor  Anchor
}

// WithYThreshold sets the vertical tolerance. Negative or NaN values are
// rejected when grouping starts.
func WithYThreshold(y float64) Option {
	return func(s *settings) { s.yThresh = y }
}

// WithAnchor selects the line membership strategy.
func WithAnchor(a Anchor) Option {
	return func(s *settings) { s.anchor = a }
}

func newSettings(opts []Option) (settings, error) {
	s := settings{yThresh: DefaultYThreshold, anchor: FirstAnchor}
	for _, opt := range opts {
		opt(&s)
	}

	if math.IsNaN(s.yThresh) || s.yThresh < 0 {
		return s, &ConfigError{Field: "y_threshold", Reason: fmt.Sprintf("must be >= 0, got %v", s.yThresh)}
	}
	if _, err := ParseAnchor(string(s.anchor)); err != nil {
		return s, err
	}
	return s, nil
}

// ValidateOptions reports the *ConfigError Group would return for opts,
// without grouping anything.
func ValidateOptions(opts ...Option) error {
	_, err := newSettings(opts)
	return err
}

// anchorTracker maintains the reference Y of the line being built.
type anchorTracker interface {
	start(y float64)
	add(y float64)
	value() float64
}

type firstTracker struct{ y float64 }

func (t *firstTracker) start(y float64) { t.y = y }
func (t *firstTracker) add(float64)     {}
func (t *firstTracker) value() float64  { return t.y }

type meanTracker struct {
	sum float64
	n   int
}

func (t *meanTracker) start(y float64) { t.sum, t.n = y, 1 }
func (t *meanTracker) add(y float64)   { t.sum += y; t.n++ }
func (t *meanTracker) value() float64  { return t.sum / float64(t.n) }

func newTracker(a Anchor) anchorTracker {
	if a == RunningMeanAnchor {
		return &meanTracker{}
	}
	return &firstTracker{}
}

// Group clusters fragments into lines by vertical proximity.
//
// Fragments are visited in (centroid Y, centroid X) order. A fragment whose Y
// is within the threshold of the current anchor joins the current line;
// otherwise the line is closed and the fragment starts a new one. The last
// open line is always emitted, so a single fragment yields a single line.
//
// The input slice is not modified. Configuration is validated before any
// work, so an invalid option fails even for empty input.
//
// Returns:
//   - []Line: lines in top-to-bottom order, never containing an empty line.
//   - error: a *ConfigError for an invalid threshold or anchor.
func Group(fragments []Fragment, opts ...Option) ([]Line, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return group(fragments, s), nil
}

func group(fragments []Fragment, s settings) []Line {
	lines := make([]Line, 0)
	if len(fragments) == 0 {
		return lines
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Centroid, sorted[j].Centroid
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	tracker := newTracker(s.anchor)
	tracker.start(sorted[0].Centroid.Y)
	current := []Fragment{sorted[0]}

	for _, f := range sorted[1:] {
		if math.Abs(f.Centroid.Y-tracker.value()) <= s.yThresh {
			current = append(current, f)
			tracker.add(f.Centroid.Y)
			continue
		}
		lines = append(lines, Line{Fragments: current, AnchorY: tracker.value()})
		current = []Fragment{f}
		tracker.start(f.Centroid.Y)
	}

	return append(lines, Line{Fragments: current, AnchorY: tracker.value()})
}
