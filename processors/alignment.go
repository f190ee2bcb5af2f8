package processors

import (
	"math"

	"multimodalRAG/core"
)

// AlignTranscript returns the text spoken at time t: the first segment that
// contains t, otherwise the segment whose start is closest to t. Ties go to
// the earlier start, then to the earlier position in segments.
func AlignTranscript(segments []core.Segment, t float64) (string, error) {
	if len(segments) == 0 {
		return "", core.ErrNoTranscript
	}
	for _, s := range segments {
		if s.Start <= t && t <= s.End {
			return s.Text, nil
		}
	}
	best := 0
	bestDist := math.Abs(segments[0].Start - t)
	for i := 1; i < len(segments); i++ {
		d := math.Abs(segments[i].Start - t)
		if d < bestDist || (d == bestDist && segments[i].Start < segments[best].Start) {
			best, bestDist = i, d
		}
	}
	return segments[best].Text, nil
}
