package bootstrap

import (
	"github.com/rs/zerolog"

	"medbridge/internal/audio"
	"medbridge/internal/backend"
	"medbridge/internal/config"
	"medbridge/internal/domain"
	"medbridge/internal/observability"
	"medbridge/internal/ports"
	"medbridge/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Portal  *usecase.Portal
	Backend *backend.Client
	Metrics *observability.Metrics
	Logger  zerolog.Logger
	Config  config.Config
}

// Build wires all dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, confirmer ports.Confirmer) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	observability.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	logger := observability.GetLogger()
	metrics := observability.NewMetrics()

	client := backend.NewClient(backend.Config{
		APIURL:  cfg.Backend.APIURL,
		Timeout: cfg.Backend.Timeout,
	}, logger.With().Str("component", "backend").Logger(), metrics)

	thread := usecase.NewThread(client, eventSink, logger.With().Str("component", "thread").Logger())
	sessions := usecase.NewSessionStore(client, confirmer, thread, eventSink, logger.With().Str("component", "sessions").Logger())
	recorder := usecase.NewRecorder(
		audio.NewFFMPEGCapture(cfg.Audio.FFmpegCommand),
		eventSink,
		metrics,
		logger.With().Str("component", "recorder").Logger(),
		usecase.RecorderConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize:    cfg.Audio.ChunkSize,
			TickInterval: cfg.Session.TickInterval,
		},
	)

	portal := usecase.NewPortal(
		client,
		sessions,
		thread,
		recorder,
		clipboard,
		eventSink,
		metrics,
		logger.With().Str("component", "portal").Logger(),
		usecase.PortalConfig{
			ViewRole: domain.Role(cfg.Session.ViewRole),
			Languages: domain.LanguagePair{
				Doctor:  cfg.Session.DoctorLanguage,
				Patient: cfg.Session.PatientLanguage,
			},
			AudioBaseURL: cfg.Backend.AudioBaseURL,
		},
	)

	return Services{
		Portal:  portal,
		Backend: client,
		Metrics: metrics,
		Logger:  logger,
		Config:  cfg,
	}, nil
}
