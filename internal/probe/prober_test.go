package probe

import (
	"context"
	"errors"
	"testing"

	"recap/internal/media/ffprobe"
	"recap/internal/services"
)

func stubInspector(result ffprobe.Result, err error) Inspector {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return result, err
	}
}

func TestProbeBuildsSignature(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "mpeg2video", Width: 1280, Height: 720, FrameRate: "60000/1001", FieldOrder: "progressive"},
			{CodecType: "audio", CodecName: "ac3", Channels: 6},
		},
		Format: ffprobe.Format{FormatName: "mpegts", Duration: "1802.3", BitRate: "9000000"},
	}
	p := New("ffprobe")
	p.WithInspector(stubInspector(result, nil))

	sig, err := p.Probe(context.Background(), "/dvr/TV/News at Nine 2024-05-04 4.1.mpg")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if sig.VideoCodec != "mpeg2video" || sig.AudioCodec != "ac3" {
		t.Fatalf("codecs = %q/%q", sig.VideoCodec, sig.AudioCodec)
	}
	if sig.Width != 1280 || sig.Height != 720 {
		t.Fatalf("dimensions = %dx%d", sig.Width, sig.Height)
	}
	if !sig.HighFrameRate() || !sig.Surround() || !sig.HD() {
		t.Fatalf("derived facts wrong: %+v", sig)
	}
	if sig.ChannelHint != "4.1" || sig.ChannelClass() != ChannelOTA {
		t.Fatalf("channel hint = %q class %q", sig.ChannelHint, sig.ChannelClass())
	}
	if sig.Duration != 1802.3 {
		t.Fatalf("duration = %v", sig.Duration)
	}
}

func TestProbeWrapsToolFailure(t *testing.T) {
	p := New("ffprobe")
	p.WithInspector(stubInspector(ffprobe.Result{}, errors.New("exit status 1")))
	if _, err := p.Probe(context.Background(), "/dvr/x.mpg"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestDurationsPrefersStreamValues(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", Duration: "1800.04"},
			{CodecType: "audio", Duration: "1800.12"},
			{CodecType: "subtitle", Duration: "1799.5"},
		},
		Format: ffprobe.Format{Duration: "1801"},
	}
	p := New("")
	p.WithInspector(stubInspector(result, nil))

	durations, err := p.Durations(context.Background(), "/dvr/x.mpg")
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	if durations.Video != 1800.04 || durations.Audio != 1800.12 || durations.Subtitle != 1799.5 {
		t.Fatalf("unexpected durations: %+v", durations)
	}
	if durations.MediaEnd() != 1800.12 {
		t.Fatalf("MediaEnd = %v", durations.MediaEnd())
	}
}

func TestChannelHintFromPath(t *testing.T) {
	cases := []struct {
		path string
		hint string
		kind ChannelClass
	}{
		{"/dvr/TV/News at Nine 2024-05-04 4.1.mpg", "4.1", ChannelOTA},
		{"/dvr/TV/Late Movie 2024-05-04 6010.mpg", "6010", ChannelStreaming},
		{"/dvr/TV/Plain Recording.mpg", "", ChannelUnknown},
		{"/dvr/TV/Retrospective 1999 2024-05-04.mpg", "", ChannelUnknown},
		{"/dvr/TV/Show_12.2_finale.mpg", "12.2", ChannelOTA},
	}
	for _, tc := range cases {
		hint := channelHintFromPath(tc.path)
		if hint != tc.hint {
			t.Errorf("channelHintFromPath(%q) = %q, want %q", tc.path, hint, tc.hint)
			continue
		}
		if got := ClassifyChannel(hint); got != tc.kind {
			t.Errorf("ClassifyChannel(%q) = %q, want %q", hint, got, tc.kind)
		}
	}
}
