package subtitles

// Cue is one timed subtitle entry. Index values are 1-based and contiguous
// after every clamp pass; input indices are never trusted.
type Cue struct {
	Index int
	Start float64
	End   float64
	Lines []string
}

// Shift moves every cue later by offset seconds, bounded below at zero.
// A non-positive offset returns the input unchanged.
func Shift(cues []Cue, offset float64) []Cue {
	if offset <= 0 {
		return cues
	}
	shifted := make([]Cue, len(cues))
	for i, cue := range cues {
		cue.Start += offset
		cue.End += offset
		if cue.Start < 0 {
			cue.Start = 0
		}
		if cue.End < 0 {
			cue.End = 0
		}
		shifted[i] = cue
	}
	return shifted
}
