package profiles

import (
	"testing"

	"recap/internal/probe"
)

func TestMatchOTASixtySurround(t *testing.T) {
	sig := probe.Signature{
		VideoCodec:    "mpeg2video",
		Width:         1280,
		Height:        720,
		FrameRate:     59.94,
		AudioChannels: 6,
		ChannelHint:   "4.1",
	}
	got := Match(sig)
	if got.Name != "ota-60fps-5.1" {
		t.Fatalf("Match = %q, want ota-60fps-5.1", got.Name)
	}
}

func TestMatchPrecedence(t *testing.T) {
	cases := []struct {
		name string
		sig  probe.Signature
		want string
	}{
		{
			name: "sd wins over channel hint",
			sig:  probe.Signature{Height: 480, Width: 720, FrameRate: 29.97, AudioChannels: 2, ChannelHint: "4.1"},
			want: "standard-definition",
		},
		{
			name: "streaming hint 30fps",
			sig:  probe.Signature{Height: 1080, Width: 1920, FrameRate: 29.97, AudioChannels: 2, ChannelHint: "6010"},
			want: "streaming-30fps-stereo",
		},
		{
			name: "streaming hint 60fps",
			sig:  probe.Signature{Height: 720, Width: 1280, FrameRate: 59.94, AudioChannels: 2, ChannelHint: "6010"},
			want: "streaming-60fps-stereo",
		},
		{
			name: "ota hint stereo",
			sig:  probe.Signature{Height: 1080, Width: 1920, FrameRate: 29.97, AudioChannels: 2, ChannelHint: "11.1"},
			want: "ota-30fps-stereo",
		},
		{
			name: "no hint surround 60fps",
			sig:  probe.Signature{Height: 720, Width: 1280, FrameRate: 59.94, AudioChannels: 6},
			want: "ota-60fps-5.1",
		},
		{
			name: "no hint stereo 30fps",
			sig:  probe.Signature{Height: 1080, Width: 1920, FrameRate: 29.97, AudioChannels: 2},
			want: "streaming-30fps-stereo",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Match(tc.sig); got.Name != tc.want {
				t.Fatalf("Match = %q, want %q", got.Name, tc.want)
			}
		})
	}
}

func TestMatchIsTotal(t *testing.T) {
	// A zero signature must still produce a usable profile.
	got, reason := MatchReason(probe.Signature{})
	if got.Name != Default().Name {
		t.Fatalf("zero signature matched %q, want default", got.Name)
	}
	if reason == "" {
		t.Fatal("expected a reason for the fallback")
	}
	if got.Transcription.BeamSize <= 0 || got.Transcode.VideoEncoder == "" {
		t.Fatalf("default profile incomplete: %+v", got)
	}
}

func TestProfilesCarryBothHalves(t *testing.T) {
	for _, profile := range All() {
		if profile.Name == "" {
			t.Fatal("profile missing name")
		}
		if profile.Transcription.BeamSize <= 0 || profile.Transcription.VADThreshold <= 0 {
			t.Errorf("%s missing transcription tuning", profile.Name)
		}
		if profile.Transcode.VideoEncoder == "" || profile.Transcode.Preset == "" {
			t.Errorf("%s missing transcode tuning", profile.Name)
		}
	}
}

func TestByName(t *testing.T) {
	if _, ok := ByName("standard-definition"); !ok {
		t.Fatal("expected standard-definition to resolve")
	}
	if _, ok := ByName("nope"); ok {
		t.Fatal("unexpected profile for unknown name")
	}
}
