// Package fileswap owns the backup, temp-file, and atomic-replace
// invariants around a pipeline target file. It is the only component
// allowed to rename or delete the original recording.
package fileswap
