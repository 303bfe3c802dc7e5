// Package subtitles parses and serializes SRT cue lists and applies the
// timing corrections (delay shift, boundary clamp) the caption pipeline
// needs before muxing.
package subtitles
