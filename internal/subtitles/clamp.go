package subtitles

// Clamp corrects a cue list against the actual end of the encoded media so
// no cue extends past it. Strict players (mobile ExoPlayer clients in
// particular) reject subtitle tracks whose last cue outruns the container's
// reported duration, and the encoder's output duration can differ from the
// source's nominal duration by tens of milliseconds, so the boundary must be
// the encoded duration, never the source's.
//
// Rules, applied in original cue order:
//   - a cue starting at or after mediaEnd is dropped
//   - a cue ending past mediaEnd has its end pulled to
//     max(start+epsilon, mediaEnd-epsilon)
//   - a cue left with end <= start is widened to start+epsilon
//
// Surviving cues are renumbered 1..N; input indices are discarded. The
// function is pure and idempotent for a fixed mediaEnd and epsilon.
func Clamp(cues []Cue, mediaEnd, epsilon float64) []Cue {
	if epsilon < 0 {
		epsilon = 0
	}
	out := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		if cue.Start >= mediaEnd {
			continue
		}
		if cue.End > mediaEnd-epsilon {
			end := mediaEnd - epsilon
			if min := cue.Start + epsilon; end < min {
				end = min
			}
			cue.End = end
		}
		if cue.End <= cue.Start {
			cue.End = cue.Start + epsilon
		}
		// Very short trailing cues can widen past the boundary; cap at the
		// boundary itself, which still leaves end > start because start is
		// strictly below mediaEnd here.
		if cue.End > mediaEnd {
			cue.End = mediaEnd
		}
		cue.Index = len(out) + 1
		out = append(out, cue)
	}
	return out
}

// Renumber rewrites cue indices to 1..N in slice order.
func Renumber(cues []Cue) []Cue {
	out := make([]Cue, len(cues))
	for i, cue := range cues {
		cue.Index = i + 1
		out[i] = cue
	}
	return out
}
