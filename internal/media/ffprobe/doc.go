// Package ffprobe wraps the ffprobe binary and exposes typed accessors
// over its JSON output.
package ffprobe
