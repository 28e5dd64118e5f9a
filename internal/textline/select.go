package textline

import "strings"

// DefaultPattern is the substring searched for when the caller gives none.
const DefaultPattern = "1"

// Select returns the line whose text contains pattern and whose average
// confidence is highest.
//
// Containment is literal and case-sensitive. Lines are visited in order and a
// later line replaces the current best only with a strictly greater average,
// so the first of several tied lines wins. When nothing matches the result
// is NoMatch().
//
// The first matching line seeds the best match whatever its score. A line
// whose average confidence is zero or negative is therefore still reported
// as Found; there is no minimum confidence a match must beat, and callers
// that want one should check Match.Confidence themselves.
func Select(lines []Line, pattern string) Match {
	best := NoMatch()

	for i, l := range lines {
		text := l.Text()
		if !strings.Contains(text, pattern) {
			continue
		}
		avg := l.AverageConfidence()
		if best.Found && avg <= best.Confidence {
			continue
		}
		best = Match{
			Found:      true,
			Text:       text,
			Confidence: avg,
			Fragments:  l.Fragments,
			Index:      i,
		}
	}

	return best
}

// Extract normalizes the batch, groups it into lines and selects the line
// containing pattern.
//
// The reconstructed lines are returned alongside the match for display.
// Options are validated before normalization. Errors are either a
// *ConfigError or a *GeometryError; an empty batch or a missing pattern is
// not an error.
func Extract(batch DetectionBatch, pattern string, opts ...Option) (Match, []Line, error) {
	s, err := newSettings(opts)
	if err != nil {
		return NoMatch(), nil, err
	}

	fragments, err := Normalize(batch)
	if err != nil {
		return NoMatch(), nil, err
	}

	lines := group(fragments, s)
	return Select(lines, pattern), lines, nil
}
