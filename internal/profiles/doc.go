// Package profiles selects transcription and transcode parameter bundles
// from probed stream signatures.
package profiles
