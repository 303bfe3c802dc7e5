package profiles

import "recap/internal/probe"

// Match selects the parameter profile for a probed signature. It is
// deterministic and total: any signature it cannot place falls back to the
// default profile rather than failing.
//
// Precedence: a channel-number hint from the file path decides the OTA vs
// streaming family when present; otherwise the resolution, frame rate, and
// audio channel count decide. Standard definition wins over either family.
func Match(sig probe.Signature) Profile {
	profile, _ := MatchReason(sig)
	return profile
}

// MatchReason is Match plus a short explanation of why the profile was
// chosen, for structured logging. Standard definition is checked before the
// channel hint: SD material gets the SD profile no matter which channel
// captured it, so a hinted path never upgrades an SD recording.
func MatchReason(sig probe.Signature) (Profile, string) {
	if sig.Height > 0 && !sig.HD() {
		return standardDefinition, "height below 720"
	}

	switch sig.ChannelClass() {
	case probe.ChannelOTA:
		if sig.HighFrameRate() && sig.Surround() {
			return otaSixtySurround, "ota channel hint, 60fps surround"
		}
		return otaThirtyStereo, "ota channel hint"
	case probe.ChannelStreaming:
		if sig.HighFrameRate() {
			return streamingSixtyStereo, "streaming channel hint, 60fps"
		}
		return streamingThirtyStereo, "streaming channel hint"
	}

	// No usable hint: fall back to stream characteristics alone.
	switch {
	case sig.Height == 0:
		return Default(), "no video stream facts, using default"
	case sig.HighFrameRate() && sig.Surround():
		return otaSixtySurround, "60fps surround looks like ota broadcast"
	case sig.HighFrameRate():
		return streamingSixtyStereo, "60fps stereo"
	case sig.Surround():
		return otaThirtyStereo, "30fps surround looks like ota broadcast"
	default:
		return streamingThirtyStereo, "30fps stereo"
	}
}
