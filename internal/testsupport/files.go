package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

const tsPacketSize = 188

// WriteRecording fills the target path with transport-stream shaped filler:
// 188-byte packets, each opening with the 0x47 sync byte. Exactly size bytes
// are written, truncating the final packet if needed; a size <= 0 writes a
// single packet.
func WriteRecording(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = tsPacketSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	// 174 whole packets per write, just under 32 KiB.
	buf := make([]byte, 174*tsPacketSize)
	for i := range buf {
		if i%tsPacketSize == 0 {
			buf[i] = 0x47
		} else {
			buf[i] = 0xFF
		}
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(len(buf))
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
