// Package probe derives encoding signatures from media files using
// ffprobe plus hints carried by the file path.
package probe
