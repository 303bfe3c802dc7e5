package profiles

// TranscriptionTuning carries the speech-to-text parameters validated for a
// content class.
type TranscriptionTuning struct {
	// BeamSize is the decoder search beam width.
	BeamSize int
	// VADThreshold is the voice-activity-detection silence threshold.
	VADThreshold float64
}

// TranscodeTuning carries the encoder parameters validated for a content
// class.
type TranscodeTuning struct {
	VideoEncoder string
	Preset       string
	Deinterlace  bool
	AudioEncoder string
	AudioBitrate string
}

// Profile is a named bundle of transcription and transcode parameters. The
// two halves are validated as a pair against real content and are always
// looked up together.
type Profile struct {
	Name          string
	Transcription TranscriptionTuning
	Transcode     TranscodeTuning
}

// The five reference profiles. OTA broadcasts carry harsher noise floors
// than streaming feeds, so their VAD thresholds sit higher; 60fps sports
// content gets a wider beam to ride through crowd noise.
var (
	otaSixtySurround = Profile{
		Name:          "ota-60fps-5.1",
		Transcription: TranscriptionTuning{BeamSize: 8, VADThreshold: 0.45},
		Transcode: TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p5",
			Deinterlace:  false,
			AudioEncoder: "aac",
			AudioBitrate: "384k",
		},
	}
	otaThirtyStereo = Profile{
		Name:          "ota-30fps-stereo",
		Transcription: TranscriptionTuning{BeamSize: 5, VADThreshold: 0.40},
		Transcode: TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p4",
			Deinterlace:  true,
			AudioEncoder: "aac",
			AudioBitrate: "192k",
		},
	}
	streamingThirtyStereo = Profile{
		Name:          "streaming-30fps-stereo",
		Transcription: TranscriptionTuning{BeamSize: 5, VADThreshold: 0.35},
		Transcode: TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p4",
			Deinterlace:  false,
			AudioEncoder: "aac",
			AudioBitrate: "192k",
		},
	}
	streamingSixtyStereo = Profile{
		Name:          "streaming-60fps-stereo",
		Transcription: TranscriptionTuning{BeamSize: 6, VADThreshold: 0.35},
		Transcode: TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p5",
			Deinterlace:  false,
			AudioEncoder: "aac",
			AudioBitrate: "192k",
		},
	}
	standardDefinition = Profile{
		Name:          "standard-definition",
		Transcription: TranscriptionTuning{BeamSize: 5, VADThreshold: 0.50},
		Transcode: TranscodeTuning{
			VideoEncoder: "h264_nvenc",
			Preset:       "p3",
			Deinterlace:  true,
			AudioEncoder: "aac",
			AudioBitrate: "128k",
		},
	}
)

// Default returns the conservative fallback profile used whenever a
// signature cannot be matched.
func Default() Profile {
	return streamingThirtyStereo
}

// All returns the reference profiles in a stable order.
func All() []Profile {
	return []Profile{
		otaSixtySurround,
		otaThirtyStereo,
		streamingThirtyStereo,
		streamingSixtyStereo,
		standardDefinition,
	}
}

// ByName looks up a reference profile by name.
func ByName(name string) (Profile, bool) {
	for _, profile := range All() {
		if profile.Name == name {
			return profile, true
		}
	}
	return Profile{}, false
}
