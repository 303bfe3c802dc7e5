// Package pipeline sequences the caption-embedding stages for one
// recording: stability wait, transcription, backup, transcode, probe,
// subtitle correction, mux, verify, and atomic replace. The tracker holds
// the only shared state; everything else here is a stateless transformer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"recap/internal/config"
	"recap/internal/fileswap"
	"recap/internal/logging"
	"recap/internal/probe"
	"recap/internal/profiles"
	"recap/internal/services"
	"recap/internal/subtitles"
	"recap/internal/tools"
	"recap/internal/tracker"
)

var errCancelled = errors.New("cancellation requested")

// Orchestrator drives the staged pipeline for one target path at a time.
type Orchestrator struct {
	cfg         *config.Config
	store       *tracker.Store
	prober      *probe.Prober
	transcriber *tools.Transcriber
	encoder     *tools.Encoder
	muxer       *tools.Muxer
	swap        *fileswap.Manager
	logger      *slog.Logger
}

// New wires an orchestrator from configuration.
func New(cfg *config.Config, store *tracker.Store, logger *slog.Logger) *Orchestrator {
	transcodeTimeout := time.Duration(cfg.Encoding.TimeoutSeconds) * time.Second
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		prober:      probe.New(cfg.Encoding.FFprobeBinary),
		transcriber: tools.NewTranscriber(cfg.Transcription.Binary, cfg.Transcription.Model, time.Duration(cfg.Transcription.TimeoutSeconds)*time.Second, logger),
		encoder:     tools.NewEncoder(cfg.Encoding.FFmpegBinary, transcodeTimeout, logger),
		muxer:       tools.NewMuxer(cfg.Encoding.FFmpegBinary, transcodeTimeout, logger),
		swap:        fileswap.New(logger),
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Prober exposes the media prober, mainly so tests can inject inspectors.
func (o *Orchestrator) Prober() *probe.Prober { return o.prober }

// Transcriber exposes the transcription tool wrapper.
func (o *Orchestrator) Transcriber() *tools.Transcriber { return o.transcriber }

// Encoder exposes the transcode tool wrapper.
func (o *Orchestrator) Encoder() *tools.Encoder { return o.encoder }

// Muxer exposes the mux tool wrapper.
func (o *Orchestrator) Muxer() *tools.Muxer { return o.muxer }

// jobState carries intermediate artifacts between stages of one run.
type jobState struct {
	path      string
	opts      Options
	signature *probe.Signature
	profile   profiles.Profile
	reason    string
	srtPath   string
	cues      []subtitles.Cue
	clampPath string
	encoded   string
	muxed     string
	backup    string
	durations probe.Durations
	temps     []string
}

// Run executes the full pipeline for one target path. The returned
// execution reflects the terminal state; err is non-nil when the run did
// not succeed. No panic escapes Run.
func (o *Orchestrator) Run(ctx context.Context, path string, opts Options) (exec *tracker.Execution, err error) {
	if optErr := opts.Validate(); optErr != nil {
		return nil, optErr
	}

	ctx = services.WithRequestID(ctx, uuid.NewString())
	exec, err = o.store.Begin(ctx, path, deriveTitle(path), opts.Kind)
	if err != nil {
		return nil, err
	}
	ctx = services.WithExecutionID(ctx, exec.ID)
	logger := logging.WithContext(ctx, o.logger)

	lock, lockErr := fileswap.LockPath(path)
	if lockErr != nil {
		_ = o.store.Complete(ctx, exec.ID, tracker.StatusFailed, lockErr.Error())
		return o.finalExecution(ctx, exec.ID), lockErr
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Warn("failed to release path lock", logging.Error(releaseErr))
		}
	}()

	if opts.DryRun {
		return o.runDry(ctx, exec, opts)
	}

	if err = o.store.MarkRunning(ctx, exec.ID); err != nil {
		return o.finalExecution(ctx, exec.ID), err
	}

	js := &jobState{path: path, opts: opts}
	defer func() {
		if recovered := recover(); recovered != nil {
			msg := fmt.Sprintf("internal fault: %v", recovered)
			logger.Error("pipeline panicked", logging.String("fault", msg))
			o.cleanupAfterAbort(js, logger)
			_ = o.store.Complete(ctx, exec.ID, tracker.StatusFailed, msg)
			exec = o.finalExecution(ctx, exec.ID)
			err = errors.New(msg)
		}
	}()

	err = o.runStages(ctx, exec, js, logger)
	switch {
	case errors.Is(err, errCancelled):
		o.cleanupAfterAbort(js, logger)
		_ = o.store.Complete(ctx, exec.ID, tracker.StatusCancelled, "")
	case err != nil:
		o.cleanupAfterAbort(js, logger)
		_ = o.store.Complete(ctx, exec.ID, tracker.StatusFailed, err.Error())
	default:
		_ = o.store.Complete(ctx, exec.ID, tracker.StatusSucceeded, "")
	}
	return o.finalExecution(ctx, exec.ID), err
}

func (o *Orchestrator) finalExecution(ctx context.Context, id string) *tracker.Execution {
	final, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return final
}

// runDry records the planned stages without invoking any external tool.
func (o *Orchestrator) runDry(ctx context.Context, exec *tracker.Execution, opts Options) (*tracker.Execution, error) {
	for ordinal, name := range StageNames() {
		step := tracker.Step{
			Ordinal:   ordinal + 1,
			StageName: name,
			Status:    tracker.StepPending,
			Metadata:  map[string]string{"planned": "true"},
		}
		if opts.SkipCaptionGeneration && captionStage(name) {
			step.Metadata["skipped"] = "true"
		}
		if err := o.store.RecordStep(ctx, exec.ID, step); err != nil {
			return o.finalExecution(ctx, exec.ID), err
		}
	}
	if err := o.store.Complete(ctx, exec.ID, tracker.StatusDryRun, ""); err != nil {
		return o.finalExecution(ctx, exec.ID), err
	}
	return o.finalExecution(ctx, exec.ID), nil
}

func captionStage(name string) bool {
	switch name {
	case StageTranscription, StageCaptionDelayShift, StageClamp, StageMux:
		return true
	}
	return false
}

func (o *Orchestrator) runStages(ctx context.Context, exec *tracker.Execution, js *jobState, logger *slog.Logger) error {
	type stageFn struct {
		name string
		run  func(context.Context, *jobState, float64) error
	}
	stages := []stageFn{
		{StageFileStability, o.stageFileStability},
		{StageTranscription, o.stageTranscription},
		{StageBackup, o.stageBackup},
		{StageAVEncode, o.stageAVEncode},
		{StageProbe, o.stageProbe},
		{StageCaptionDelayShift, o.stageCaptionDelayShift},
		{StageClamp, o.stageClamp},
		{StageMux, o.stageMux},
		{StageVerify, o.stageVerify},
		{StageAtomicReplace, o.stageAtomicReplace},
		{StageCleanup, o.stageCleanup},
	}

	var completed float64
	for ordinal, entry := range stages {
		cancelled, err := o.store.CancelRequested(ctx, exec.ID)
		if err != nil {
			return err
		}
		if cancelled {
			logger.Info("cancellation requested, stopping",
				logging.String(logging.FieldEventType, "cancel"),
				logging.String("before_stage", entry.name),
			)
			return errCancelled
		}

		stageCtx := services.WithStage(ctx, entry.name)
		stageLogger := logging.WithContext(stageCtx, o.logger)
		weight := stageWeights[entry.name]
		started := time.Now().UTC()

		step := tracker.Step{
			Ordinal:   ordinal + 1,
			StageName: entry.name,
			Status:    tracker.StepActive,
			StartedAt: &started,
		}
		if err := o.store.RecordStep(stageCtx, exec.ID, step); err != nil {
			return err
		}
		_ = o.store.SetProgress(stageCtx, exec.ID, entry.name, completed)
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		stageErr := entry.run(stageCtx, js, completed)
		ended := time.Now().UTC()
		step.EndedAt = &ended
		step.Duration = ended.Sub(started)
		if stageErr != nil {
			step.Status = tracker.StepFailed
			_ = o.store.RecordStep(stageCtx, exec.ID, step)
			stageLogger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.Error(stageErr),
			)
			return stageErr
		}

		step.Status = tracker.StepCompleted
		if entry.name == StageTranscription && !js.opts.SkipCaptionGeneration {
			step.GPUEngaged = true
			step.Metadata = map[string]string{
				"profile":        js.profile.Name,
				"profile_reason": js.reason,
				"cue_count":      strconv.Itoa(len(js.cues)),
			}
		}
		if err := o.store.RecordStep(stageCtx, exec.ID, step); err != nil {
			return err
		}
		completed += weight
		_ = o.store.SetProgress(stageCtx, exec.ID, entry.name, completed)
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", step.Duration),
		)
	}
	return nil
}

func (o *Orchestrator) stageFileStability(ctx context.Context, js *jobState, _ float64) error {
	window := time.Duration(o.cfg.Pipeline.StabilityWindowSeconds) * time.Second
	poll := time.Duration(o.cfg.Pipeline.StabilityPollSeconds) * time.Second
	return waitForStability(ctx, js.path, window, poll)
}

// ensureProfile probes the source once and resolves the parameter profile
// for both transcription and transcode. Profile selection is best effort: a
// probe failure falls back to the default profile with an empty signature
// instead of failing the run.
func (o *Orchestrator) ensureProfile(ctx context.Context, js *jobState) {
	if js.signature != nil {
		return
	}
	sig, err := o.prober.Probe(ctx, js.path)
	if err != nil {
		js.signature = &probe.Signature{}
		js.profile = profiles.Default()
		js.reason = "source probe failed, using default"
		logging.WithContext(ctx, o.logger).Warn("source probe failed, falling back to default profile",
			logging.Error(err),
		)
		return
	}
	js.signature = &sig
	if js.opts.ProfileMode == ProfileModeAutomatic {
		js.profile, js.reason = profiles.MatchReason(sig)
	} else {
		js.profile = profiles.Default()
		js.reason = "standard mode"
	}
}

func (o *Orchestrator) stageTranscription(ctx context.Context, js *jobState, _ float64) error {
	if js.opts.SkipCaptionGeneration {
		return nil
	}
	o.ensureProfile(ctx, js)
	result, err := o.transcriber.Transcribe(ctx, tools.TranscribeRequest{
		Source:    js.path,
		OutputDir: filepath.Dir(js.path),
		Language:  js.opts.LanguageOverride,
		Tuning:    js.profile.Transcription,
	})
	if err != nil {
		return err
	}
	js.srtPath = result.SRTPath
	js.temps = append(js.temps, js.srtPath)
	cues, err := subtitles.ParseSRTFile(js.srtPath)
	if err != nil {
		return err
	}
	js.cues = cues
	return nil
}

func (o *Orchestrator) stageBackup(_ context.Context, js *jobState, _ float64) error {
	backup, _, err := o.swap.EnsureBackup(js.path)
	if err != nil {
		return err
	}
	js.backup = backup
	return nil
}

func (o *Orchestrator) stageAVEncode(ctx context.Context, js *jobState, base float64) error {
	o.ensureProfile(ctx, js)
	js.encoded = o.swap.AllocateTemp(js.path, filepath.Ext(js.path))
	js.temps = append(js.temps, js.encoded)

	weight := stageWeights[StageAVEncode]
	execID, _ := services.ExecutionIDFromContext(ctx)
	return o.encoder.Encode(ctx, tools.EncodeRequest{
		Source:          js.path,
		Dest:            js.encoded,
		Tuning:          js.profile.Transcode,
		DurationSeconds: js.signature.Duration,
		OnProgress: func(percent float64) {
			_ = o.store.SetProgress(ctx, execID, StageAVEncode, base+weight*percent/100)
		},
	})
}

func (o *Orchestrator) stageProbe(ctx context.Context, js *jobState, _ float64) error {
	durations, err := o.prober.Durations(ctx, js.encoded)
	if err != nil {
		return err
	}
	js.durations = durations
	return nil
}

func (o *Orchestrator) stageCaptionDelayShift(_ context.Context, js *jobState, _ float64) error {
	if js.opts.SkipCaptionGeneration || o.cfg.Pipeline.CaptionDelayMillis <= 0 {
		return nil
	}
	offset := float64(o.cfg.Pipeline.CaptionDelayMillis) / 1000
	js.cues = subtitles.Shift(js.cues, offset)
	return nil
}

func (o *Orchestrator) stageClamp(_ context.Context, js *jobState, _ float64) error {
	if js.opts.SkipCaptionGeneration {
		return nil
	}
	epsilon := float64(o.cfg.Pipeline.ClampEpsilonMillis) / 1000
	js.cues = subtitles.Clamp(js.cues, js.durations.MediaEnd(), epsilon)
	js.clampPath = o.swap.AllocateTemp(js.path, ".srt")
	js.temps = append(js.temps, js.clampPath)
	return subtitles.WriteSRTFile(js.clampPath, js.cues)
}

func (o *Orchestrator) stageMux(ctx context.Context, js *jobState, _ float64) error {
	if js.opts.SkipCaptionGeneration {
		js.muxed = js.encoded
		return nil
	}
	js.muxed = o.swap.AllocateTemp(js.path, filepath.Ext(js.path))
	js.temps = append(js.temps, js.muxed)
	return o.muxer.Mux(ctx, tools.MuxRequest{
		MediaPath:    js.encoded,
		SubtitlePath: js.clampPath,
		Language:     js.opts.LanguageOverride,
		Dest:         js.muxed,
	})
}

func (o *Orchestrator) stageVerify(ctx context.Context, js *jobState, _ float64) error {
	if js.opts.SkipCaptionGeneration {
		return nil
	}
	durations, err := o.prober.Durations(ctx, js.muxed)
	if err != nil {
		return err
	}
	epsilon := float64(o.cfg.Pipeline.VerifyEpsilonMillis) / 1000
	limit := durations.MediaEnd() + epsilon
	if durations.Subtitle > limit {
		return services.Wrap(
			services.ErrValidation,
			StageVerify,
			"duration-check",
			fmt.Sprintf("subtitle stream runs %.3fs past the media end", durations.Subtitle-limit),
			nil,
		)
	}
	return nil
}

func (o *Orchestrator) stageAtomicReplace(_ context.Context, js *jobState, _ float64) error {
	return o.swap.Replace(js.path, js.muxed)
}

func (o *Orchestrator) stageCleanup(_ context.Context, js *jobState, _ float64) error {
	if !o.cfg.Pipeline.KeepTemp {
		o.swap.Cleanup(js.temps...)
	}
	if !o.cfg.Pipeline.KeepOriginal && js.backup != "" {
		o.swap.Cleanup(js.backup)
	}
	return nil
}

// cleanupAfterAbort removes temp artifacts after a failure or
// cancellation. The backup is always left in place.
func (o *Orchestrator) cleanupAfterAbort(js *jobState, logger *slog.Logger) {
	if o.cfg.Pipeline.KeepTemp {
		logger.Info("keeping temp artifacts", logging.Int("count", len(js.temps)))
		return
	}
	o.swap.Cleanup(js.temps...)
}
