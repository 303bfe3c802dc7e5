package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Duration: "120.5", FrameRate: "60000/1001", FieldOrder: "progressive"},
			{CodecType: "audio", Duration: "120.4", Channels: 6},
			{CodecType: "subtitle", Duration: "119.8"},
		},
		Format: Format{
			Duration: "123.45",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.SubtitleStreamCount() != 1 {
		t.Fatalf("expected 1 subtitle stream, got %d", result.SubtitleStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
	if got := result.StreamDurationSeconds("video"); got != 120.5 {
		t.Fatalf("video duration = %v", got)
	}
	if got := result.StreamDurationSeconds("subtitle"); got != 119.8 {
		t.Fatalf("subtitle duration = %v", got)
	}
}

func TestStreamDurationFallsBackToContainer(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}},
		Format:  Format{Duration: "61.2"},
	}
	if got := result.StreamDurationSeconds("video"); got != 61.2 {
		t.Fatalf("expected container fallback, got %v", got)
	}
}

func TestStreamFPS(t *testing.T) {
	cases := []struct {
		rate string
		want float64
	}{
		{"60000/1001", 59.94005994005994},
		{"30000/1001", 29.97002997002997},
		{"25/1", 25},
		{"29.97", 29.97},
		{"", 0},
		{"bad/0", 0},
	}
	for _, tc := range cases {
		s := Stream{FrameRate: tc.rate}
		got := s.FPS()
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("FPS(%q) = %v, want %v", tc.rate, got, tc.want)
		}
	}
}

func TestStreamInterlaced(t *testing.T) {
	if (Stream{FieldOrder: "progressive"}).Interlaced() {
		t.Fatal("progressive should not report interlaced")
	}
	if !(Stream{FieldOrder: "tt"}).Interlaced() {
		t.Fatal("tt should report interlaced")
	}
}

func TestParseRejectsBadPayload(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
