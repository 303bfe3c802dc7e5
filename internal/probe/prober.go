package probe

import (
	"context"
	"errors"
	"strings"

	"recap/internal/media/ffprobe"
	"recap/internal/services"
)

// Durations collects the per-stream durations of one media file.
type Durations struct {
	Video    float64
	Audio    float64
	Subtitle float64
}

// MediaEnd returns the longer of the video and audio durations, the boundary
// subtitle cues must not cross.
func (d Durations) MediaEnd() float64 {
	if d.Audio > d.Video {
		return d.Audio
	}
	return d.Video
}

// Inspector abstracts the ffprobe invocation for tests.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Prober wraps ffprobe and turns its output into signatures and durations.
type Prober struct {
	binary  string
	inspect Inspector
}

// New constructs a Prober using the given ffprobe binary.
func New(binary string) *Prober {
	return &Prober{binary: binary, inspect: ffprobe.Inspect}
}

// WithInspector replaces the ffprobe invocation (for tests).
func (p *Prober) WithInspector(inspect Inspector) {
	if p != nil && inspect != nil {
		p.inspect = inspect
	}
}

// Probe inspects path and assembles its encoding signature.
func (p *Prober) Probe(ctx context.Context, path string) (Signature, error) {
	if p == nil {
		return Signature{}, errors.New("prober not initialized")
	}
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return Signature{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "", err)
	}
	return signatureFromResult(path, result), nil
}

// Durations inspects path and reports per-stream durations. The encoded
// output's durations are authoritative; the source's are not trusted.
func (p *Prober) Durations(ctx context.Context, path string) (Durations, error) {
	if p == nil {
		return Durations{}, errors.New("prober not initialized")
	}
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return Durations{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "", err)
	}
	return Durations{
		Video:    result.StreamDurationSeconds("video"),
		Audio:    result.StreamDurationSeconds("audio"),
		Subtitle: result.StreamDurationSeconds("subtitle"),
	}, nil
}

func signatureFromResult(path string, result ffprobe.Result) Signature {
	sig := Signature{
		Path:        path,
		Container:   strings.TrimSpace(result.Format.FormatName),
		Duration:    result.DurationSeconds(),
		BitRate:     result.BitRate(),
		ChannelHint: channelHintFromPath(path),
	}
	if video, ok := result.FirstStream("video"); ok {
		sig.VideoCodec = video.CodecName
		sig.Width = video.Width
		sig.Height = video.Height
		sig.FrameRate = video.FPS()
		sig.Interlaced = video.Interlaced()
	}
	if audio, ok := result.FirstStream("audio"); ok {
		sig.AudioCodec = audio.CodecName
		sig.AudioChannels = audio.Channels
	}
	return sig
}
