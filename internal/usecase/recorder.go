package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medbridge/internal/domain"
	"medbridge/internal/observability"
	"medbridge/internal/ports"
)

var (
	ErrRecordingActive   = errors.New("a recording is already active")
	ErrNoActiveRecording = errors.New("no active recording")
)

// RecorderConfig controls microphone capture.
type RecorderConfig struct {
	Audio           ports.AudioConfig
	ChunkSize       int
	TickInterval    time.Duration
	FinalizeTimeout time.Duration
}

// Recorder drives the capture lifecycle idle → acquiring → recording →
// stopping → idle. Only one capture session exists at a time.
type Recorder struct {
	audio   ports.AudioCapture
	events  ports.EventSink
	metrics *observability.Metrics
	logger  zerolog.Logger
	cfg     RecorderConfig

	mu      sync.Mutex
	state   domain.RecordingState
	current *activeRecording
}

func NewRecorder(
	audio ports.AudioCapture,
	events ports.EventSink,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	cfg RecorderConfig,
) *Recorder {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 4 * time.Second
	}
	return &Recorder{
		audio:   audio,
		events:  events,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		state:   domain.RecordingStateIdle,
	}
}

// Start acquires the microphone and begins buffering audio.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != domain.RecordingStateIdle {
		r.mu.Unlock()
		return ErrRecordingActive
	}
	r.state = domain.RecordingStateAcquiring
	r.mu.Unlock()
	r.events.RecordingStateChanged(domain.RecordingStateAcquiring, domain.RecordingReasonAcquiring)

	captureCtx, cancel := context.WithCancel(ctx)
	session, err := r.audio.Start(captureCtx, r.cfg.Audio)
	if err != nil {
		cancel()
		r.setState(domain.RecordingStateIdle)
		r.logger.Warn().Err(err).Msg("microphone unavailable")
		r.metrics.RecordRecording("denied", 0, 0)
		r.events.Notice(domain.ErrorCodeMicrophone, fmt.Sprintf("microphone access failed: %v", err))
		r.events.RecordingStateChanged(domain.RecordingStateIdle, domain.RecordingReasonMicrophoneDenied)
		return err
	}

	active := newActiveRecording(cancel, session)
	r.mu.Lock()
	r.current = active
	r.state = domain.RecordingStateRecording
	r.mu.Unlock()

	go pumpAudioChunks(session, active, r.cfg.ChunkSize, active.pumpDone)
	go runElapsedTicker(r.cfg.TickInterval, active.tick, r.events.RecordingElapsed, active.stopTicks, active.tickDone)

	r.events.RecordingStateChanged(domain.RecordingStateRecording, domain.RecordingReasonStarted)
	return nil
}

// Stop finalizes the capture and returns everything buffered as one
// artifact. An empty artifact is returned as is.
func (r *Recorder) Stop(ctx context.Context) (domain.AudioArtifact, error) {
	active, err := r.beginStopping()
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	r.events.RecordingStateChanged(domain.RecordingStateStopping, domain.RecordingReasonFinalizing)

	close(active.stopTicks)
	<-active.tickDone

	reason := domain.RecordingReasonCaptured
	if err := active.session.Stop(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to stop audio capture cleanly")
		r.events.Notice(domain.ErrorCodeAudioCapture, "failed to stop audio capture cleanly")
		reason = domain.RecordingReasonFinalizeIncomplete
	}

	timeout := r.cfg.FinalizeTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if err := waitForFinalize(active.pumpDone, timeout, active.cancel); err != nil {
		r.logger.Warn().Err(err).Msg("audio capture finalized with error")
		r.events.Notice(domain.ErrorCodeAudioCapture, err.Error())
		reason = domain.RecordingReasonFinalizeIncomplete
	}

	data, seconds := active.snapshot()
	artifact := domain.AudioArtifact{Data: data, MimeType: active.session.MimeType(), Seconds: seconds}
	r.finish(active, reason)
	r.metrics.RecordRecording("captured", seconds, len(data))
	r.logger.Debug().Int("bytes", len(data)).Int("seconds", seconds).Msg("recording captured")
	return artifact, nil
}

// Abort discards the active capture without producing an artifact.
func (r *Recorder) Abort() error {
	active, err := r.beginStopping()
	if err != nil {
		return err
	}

	close(active.stopTicks)
	<-active.tickDone
	active.cancel()
	_ = active.session.Stop()
	<-active.pumpDone

	data, seconds := active.snapshot()
	r.finish(active, domain.RecordingReasonDiscarded)
	r.metrics.RecordRecording("discarded", seconds, len(data))
	return nil
}

// Status reports the current capture state.
func (r *Recorder) Status() domain.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := domain.RecordingStatus{State: r.state, Active: r.state != domain.RecordingStateIdle}
	if r.current != nil {
		status.Elapsed = r.current.elapsedSeconds()
	}
	return status
}

func (r *Recorder) beginStopping() (*activeRecording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.RecordingStateRecording || r.current == nil {
		return nil, ErrNoActiveRecording
	}
	r.state = domain.RecordingStateStopping
	return r.current, nil
}

func (r *Recorder) finish(active *activeRecording, reason domain.RecordingReason) {
	active.cancel()
	_ = active.session.Close()

	r.mu.Lock()
	if r.current == active {
		r.current = nil
	}
	r.state = domain.RecordingStateIdle
	r.mu.Unlock()

	r.events.RecordingElapsed(0)
	r.events.RecordingStateChanged(domain.RecordingStateIdle, reason)
}

func (r *Recorder) setState(state domain.RecordingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}
