package probe

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Signature captures the probed technical characteristics of one media file.
// Immutable once computed.
type Signature struct {
	Path          string
	VideoCodec    string
	AudioCodec    string
	Width         int
	Height        int
	FrameRate     float64
	Interlaced    bool
	AudioChannels int
	Container     string
	Duration      float64
	BitRate       int64
	ChannelHint   string
}

// ChannelClass categorizes the channel-number hint parsed from a file path.
type ChannelClass string

const (
	// ChannelUnknown means no usable hint was found.
	ChannelUnknown ChannelClass = "unknown"
	// ChannelOTA matches over-the-air subchannel numbers such as "4.1".
	ChannelOTA ChannelClass = "ota"
	// ChannelStreaming matches 4+ digit streaming-service channel numbers.
	ChannelStreaming ChannelClass = "streaming"
)

var (
	otaChannelPattern       = regexp.MustCompile(`^\d{1,3}\.\d{1,2}$`)
	streamingChannelPattern = regexp.MustCompile(`^\d{4,}$`)
)

// ClassifyChannel reports which broadcast class a channel hint belongs to.
func ClassifyChannel(hint string) ChannelClass {
	hint = strings.TrimSpace(hint)
	switch {
	case hint == "":
		return ChannelUnknown
	case otaChannelPattern.MatchString(hint):
		return ChannelOTA
	case streamingChannelPattern.MatchString(hint):
		return ChannelStreaming
	default:
		return ChannelUnknown
	}
}

// ChannelClass classifies the signature's path-derived channel hint.
func (s Signature) ChannelClass() ChannelClass {
	return ClassifyChannel(s.ChannelHint)
}

// HD reports whether the signature is at least 720 lines tall.
func (s Signature) HD() bool {
	return s.Height >= 720
}

// HighFrameRate reports whether the signature exceeds standard broadcast
// frame rates (anything above ~45fps counts as the 50/60fps family).
func (s Signature) HighFrameRate() bool {
	return s.FrameRate > 45
}

// Surround reports whether the primary audio carries more than two channels.
func (s Signature) Surround() bool {
	return s.AudioChannels > 2
}

// channelHintFromPath scans the path's base name for a channel-number token,
// either an OTA subchannel ("4.1") or a 4+ digit streaming channel ("6010").
// Tokens that look like calendar years are skipped so dates in DVR file
// names do not masquerade as channels.
func channelHintFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	fields := strings.Fields(strings.ReplaceAll(base, "_", " "))
	// Scan right to left: the channel token trails the title in DVR names.
	for i := len(fields) - 1; i >= 0; i-- {
		token := fields[i]
		if looksLikeYear(token) {
			continue
		}
		if ClassifyChannel(token) != ChannelUnknown {
			return token
		}
	}
	return ""
}

func looksLikeYear(token string) bool {
	if len(token) != 4 {
		return false
	}
	return strings.HasPrefix(token, "19") || strings.HasPrefix(token, "20")
}
