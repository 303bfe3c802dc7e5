package pipeline

// Stage names in execution order.
const (
	StageFileStability     = "file_stability"
	StageTranscription     = "transcription"
	StageBackup            = "backup"
	StageAVEncode          = "av_encode"
	StageProbe             = "probe"
	StageCaptionDelayShift = "caption_delay_shift"
	StageClamp             = "clamp"
	StageMux               = "mux"
	StageVerify            = "verify"
	StageAtomicReplace     = "atomic_replace"
	StageCleanup           = "cleanup"
)

// stageWeights apportions overall progress by expected wall-clock cost.
// Encode and transcription dominate real runs.
var stageWeights = map[string]float64{
	StageFileStability:     2,
	StageTranscription:     30,
	StageBackup:            2,
	StageAVEncode:          42,
	StageProbe:             3,
	StageCaptionDelayShift: 1,
	StageClamp:             2,
	StageMux:               10,
	StageVerify:            4,
	StageAtomicReplace:     3,
	StageCleanup:           1,
}

// StageNames returns the pipeline stages in execution order.
func StageNames() []string {
	return []string{
		StageFileStability,
		StageTranscription,
		StageBackup,
		StageAVEncode,
		StageProbe,
		StageCaptionDelayShift,
		StageClamp,
		StageMux,
		StageVerify,
		StageAtomicReplace,
		StageCleanup,
	}
}
