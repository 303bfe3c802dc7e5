package pipeline

import (
	"fmt"
	"strings"

	"recap/internal/language"
	"recap/internal/services"
	"recap/internal/tracker"
)

// ProfileMode selects how encoding and transcription parameters are chosen.
type ProfileMode string

const (
	// ProfileModeStandard always uses the default profile.
	ProfileModeStandard ProfileMode = "standard"
	// ProfileModeAutomatic matches a profile from the probed signature.
	ProfileModeAutomatic ProfileMode = "automatic"
)

// Options controls one pipeline run.
type Options struct {
	// SkipCaptionGeneration disables transcription and caption embedding,
	// leaving only the transcode and replace stages.
	SkipCaptionGeneration bool
	// LanguageOverride pins the transcription language instead of
	// auto-detecting. Accepts ISO codes or full names.
	LanguageOverride string
	// ProfileMode selects standard or signature-matched parameters.
	ProfileMode ProfileMode
	// DryRun records the planned work without invoking any external tool
	// or touching the target.
	DryRun bool
	// Kind tags how the run was triggered.
	Kind tracker.Kind
}

// Validate normalizes the options and rejects unusable combinations.
func (o *Options) Validate() error {
	if o.ProfileMode == "" {
		o.ProfileMode = ProfileModeStandard
	}
	if o.ProfileMode != ProfileModeStandard && o.ProfileMode != ProfileModeAutomatic {
		return services.Wrap(services.ErrValidation, "pipeline", "options", fmt.Sprintf("unknown profile mode %q", o.ProfileMode), nil)
	}
	if o.Kind == "" {
		o.Kind = tracker.KindManual
	}
	if trimmed := strings.TrimSpace(o.LanguageOverride); trimmed != "" {
		if language.ToISO2(trimmed) == "" {
			return services.Wrap(services.ErrValidation, "pipeline", "options", fmt.Sprintf("unrecognized language %q", trimmed), nil)
		}
		o.LanguageOverride = trimmed
	} else {
		o.LanguageOverride = ""
	}
	return nil
}
