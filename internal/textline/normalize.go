package textline

// Normalize flattens a DetectionBatch into fragments, block by block and in
// order within each block.
//
// Duplicates and empty-text detections are kept as they are; confidence is
// not filtered or clamped. A nil or empty batch yields an empty slice.
//
// Every box must have exactly four points. The first box that does not
// produces a *GeometryError and no fragments are returned.
func Normalize(batch DetectionBatch) ([]Fragment, error) {
	fragments := make([]Fragment, 0, batch.Len())

	for bi, block := range batch {
		for di, d := range block {
			if len(d.Box) != 4 {
				return nil, &GeometryError{Block: bi, Entry: di, Points: len(d.Box)}
			}

			var f Fragment
			f.Text = d.Text
			f.Confidence = d.Confidence
			copy(f.Box[:], d.Box)
			f.Centroid = centroid(f.Box)
			fragments = append(fragments, f)
		}
	}

	return fragments, nil
}

// centroid is the unweighted mean of the four corners.
func centroid(box [4]Point) Point {
	var sx, sy float64
	for _, p := range box {
		sx += p.X
		sy += p.Y
	}
	return Point{X: sx / 4, Y: sy / 4}
}
