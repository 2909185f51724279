package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"medbridge/internal/domain"
)

const envPrefix = "MEDBRIDGE"

// Config stores runtime configuration for the consultation client.
type Config struct {
	Backend BackendConfig `envconfig:"BACKEND"`
	Audio   AudioConfig   `envconfig:"AUDIO"`
	Session SessionConfig `envconfig:"SESSION"`
	Log     LogConfig     `envconfig:"LOG"`
	Metrics MetricsConfig `envconfig:"METRICS"`
}

type BackendConfig struct {
	APIURL string `envconfig:"API_URL" default:"http://localhost:8000/api"`
	// AudioBaseURL resolves relative audio paths. Defaults to APIURL
	// without its trailing /api segment.
	AudioBaseURL string        `envconfig:"AUDIO_BASE_URL"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"90s"`
}

type AudioConfig struct {
	FFmpegCommand string `envconfig:"FFMPEG_COMMAND" default:"ffmpeg"`
	InputFormat   string `envconfig:"INPUT_FORMAT" default:"pulse"`
	InputDevice   string `envconfig:"INPUT_DEVICE" default:"default"`
	SampleRate    int    `envconfig:"SAMPLE_RATE" default:"48000"`
	Channels      int    `envconfig:"CHANNELS" default:"1"`
	ChunkSize     int    `envconfig:"CHUNK_SIZE" default:"4096"`
}

type SessionConfig struct {
	DoctorLanguage  string        `envconfig:"DOCTOR_LANGUAGE" default:"English"`
	PatientLanguage string        `envconfig:"PATIENT_LANGUAGE" default:"Spanish"`
	ViewRole        string        `envconfig:"VIEW_ROLE" default:"doctor"`
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"1s"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Pretty bool   `envconfig:"PRETTY" default:"false"`
}

type MetricsConfig struct {
	// Addr enables a Prometheus listener when non-empty, e.g. "127.0.0.1:9464".
	Addr string `envconfig:"ADDR"`
}

// Load reads an optional .env file and then the MEDBRIDGE_* environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv resolves configuration from the environment only.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Backend.APIURL = strings.TrimRight(strings.TrimSpace(c.Backend.APIURL), "/")
	if _, err := parseAbsoluteURL(c.Backend.APIURL); err != nil {
		return fmt.Errorf("invalid %s_BACKEND_API_URL: %w", envPrefix, err)
	}

	c.Backend.AudioBaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.AudioBaseURL), "/")
	if c.Backend.AudioBaseURL == "" {
		c.Backend.AudioBaseURL = strings.TrimSuffix(c.Backend.APIURL, "/api")
	}
	if _, err := parseAbsoluteURL(c.Backend.AudioBaseURL); err != nil {
		return fmt.Errorf("invalid %s_BACKEND_AUDIO_BASE_URL: %w", envPrefix, err)
	}
	if c.Backend.Timeout < 0 {
		c.Backend.Timeout = 0
	}

	doctor, ok := domain.NormalizeLanguage(c.Session.DoctorLanguage)
	if !ok {
		return fmt.Errorf("unsupported doctor language %q", c.Session.DoctorLanguage)
	}
	patient, ok := domain.NormalizeLanguage(c.Session.PatientLanguage)
	if !ok {
		return fmt.Errorf("unsupported patient language %q", c.Session.PatientLanguage)
	}
	c.Session.DoctorLanguage = doctor
	c.Session.PatientLanguage = patient

	role := domain.Role(strings.ToLower(strings.TrimSpace(c.Session.ViewRole)))
	if !role.Valid() {
		return fmt.Errorf("unsupported view role %q", c.Session.ViewRole)
	}
	c.Session.ViewRole = string(role)
	if c.Session.TickInterval <= 0 {
		c.Session.TickInterval = time.Second
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.ChunkSize < 256 {
		c.Audio.ChunkSize = 4096
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	return nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return parsed, nil
}
