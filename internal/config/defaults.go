package config

const (
	defaultLogDir                 = "~/.local/share/recap/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultTranscriptionBinary    = "whisper"
	defaultTranscriptionModel     = "medium.en"
	defaultTranscriptionTimeout   = 3600
	defaultEncodingTimeout        = 7200
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultStabilityWindowSeconds = 15
	defaultStabilityPollSeconds   = 3
	defaultClampEpsilonMillis     = 50
	defaultVerifyEpsilonMillis    = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Transcription: Transcription{
			Binary:         defaultTranscriptionBinary,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Encoding: Encoding{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultEncodingTimeout,
		},
		Pipeline: Pipeline{
			StabilityWindowSeconds: defaultStabilityWindowSeconds,
			StabilityPollSeconds:   defaultStabilityPollSeconds,
			ClampEpsilonMillis:     defaultClampEpsilonMillis,
			VerifyEpsilonMillis:    defaultVerifyEpsilonMillis,
			KeepOriginal:           true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
