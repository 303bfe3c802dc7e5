package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recap/internal/logging"
	"recap/internal/profiles"
	"recap/internal/services"
)

func TestTranscriberBuildsWhisperArgs(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "game.ts")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var gotName string
	var gotArgs []string
	tr := NewTranscriber("whisper", "medium.en", time.Minute, logging.NewNop())
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		// Simulate whisper writing its transcript.
		return os.WriteFile(filepath.Join(dir, "game.srt"), []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644)
	})

	result, err := tr.Transcribe(context.Background(), TranscribeRequest{
		Source:    source,
		OutputDir: dir,
		Language:  "english",
		Tuning:    profiles.TranscriptionTuning{BeamSize: 8, VADThreshold: 0.45},
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if gotName != "whisper" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"--model medium.en",
		"--output_format srt",
		"--beam_size 8",
		"--vad_threshold 0.45",
		"--language en",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if result.SRTPath != filepath.Join(dir, "game.srt") {
		t.Fatalf("unexpected SRT path %q", result.SRTPath)
	}
}

func TestTranscriberReportsMissingTranscript(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "game.ts")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	tr := NewTranscriber("whisper", "medium.en", time.Minute, logging.NewNop())
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})

	_, err := tr.Transcribe(context.Background(), TranscribeRequest{Source: source, OutputDir: dir})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestEncoderBuildsFFmpegArgs(t *testing.T) {
	var gotArgs []string
	enc := NewEncoder("ffmpeg", time.Minute, logging.NewNop())
	enc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	})

	err := enc.Encode(context.Background(), EncodeRequest{
		Source: "/tmp/in.ts",
		Dest:   "/tmp/out.ts",
		Tuning: profiles.TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p4",
			Deinterlace:  true,
			AudioEncoder: "aac",
			AudioBitrate: "192k",
		},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"-i /tmp/in.ts",
		"-vf yadif=mode=send_frame:deint=all",
		"-c:v h264_nvenc",
		"-preset p4",
		"-c:a aac",
		"-b:a 192k",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/out.ts" {
		t.Fatalf("dest must be last arg, got %q", gotArgs[len(gotArgs)-1])
	}
}

func TestEncoderOmitsDeinterlaceFilter(t *testing.T) {
	var gotArgs []string
	enc := NewEncoder("ffmpeg", 0, logging.NewNop())
	enc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	})

	err := enc.Encode(context.Background(), EncodeRequest{
		Source: "/tmp/in.ts",
		Dest:   "/tmp/out.ts",
		Tuning: profiles.TranscodeTuning{VideoEncoder: "h264_nvenc", AudioEncoder: "aac", AudioBitrate: "192k"},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(strings.Join(gotArgs, " "), "yadif") {
		t.Fatal("unexpected deinterlace filter")
	}
}

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line     string
		duration float64
		want     float64
		ok       bool
	}{
		{"out_time_us=30000000", 60, 50, true},
		{"out_time_ms=30000000", 60, 50, true},
		{"out_time_us=90000000", 60, 100, true},
		{"frame=100", 60, 0, false},
		{"out_time_us=bogus", 60, 0, false},
		{"", 60, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgressLine(tc.line, tc.duration)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseProgressLine(%q) = %v, %v; want %v, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMuxerSelectsSubtitleCodec(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "game.srt")
	if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	cases := []struct {
		dest      string
		wantCodec string
	}{
		{filepath.Join(dir, "out.mkv"), "srt"},
		{filepath.Join(dir, "out.mp4"), "mov_text"},
		{filepath.Join(dir, "out.ts"), "srt"},
	}
	for _, tc := range cases {
		var gotArgs []string
		m := NewMuxer("ffmpeg", time.Minute, logging.NewNop())
		m.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			gotArgs = args
			return nil
		})
		err := m.Mux(context.Background(), MuxRequest{
			MediaPath:    filepath.Join(dir, "in.ts"),
			SubtitlePath: srt,
			Language:     "en",
			Dest:         tc.dest,
		})
		if err != nil {
			t.Fatalf("Mux %s failed: %v", tc.dest, err)
		}
		joined := strings.Join(gotArgs, " ")
		if !strings.Contains(joined, "-c:s "+tc.wantCodec) {
			t.Errorf("dest %s: expected codec %s in %s", tc.dest, tc.wantCodec, joined)
		}
		if !strings.Contains(joined, "language=eng") {
			t.Errorf("dest %s: expected language tag in %s", tc.dest, joined)
		}
	}
}

func TestMuxerRequiresSubtitleFile(t *testing.T) {
	m := NewMuxer("ffmpeg", time.Minute, logging.NewNop())
	err := m.Mux(context.Background(), MuxRequest{
		MediaPath:    "/tmp/in.ts",
		SubtitlePath: "/tmp/missing.srt",
		Dest:         "/tmp/out.ts",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTailBufferBoundsOutput(t *testing.T) {
	var tail tailBuffer
	chunk := strings.Repeat("a", 1024)
	for i := 0; i < 10; i++ {
		if _, err := tail.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := len(tail.String()); got != stderrTailLimit {
		t.Fatalf("expected %d bytes retained, got %d", stderrTailLimit, got)
	}
}
