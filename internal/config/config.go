// Package config handles loading and validating the storefront configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nadzzz/storefront/internal/observability"
)

// Config is the root configuration for the storefront daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	STT        STTConfig        `mapstructure:"stt"`
	Inference  InferenceConfig  `mapstructure:"inference"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Persona    PersonaConfig    `mapstructure:"persona"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	Session    SessionConfig    `mapstructure:"session"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int              `mapstructure:"health_port"`
	GRPCHealth GRPCHealthConfig `mapstructure:"grpc_health"`
}

// GRPCHealthConfig configures the grpc.health.v1 service.
type GRPCHealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig configures the web UI and JSON API.
type HTTPConfig struct {
	Port         int    `mapstructure:"port"`
	MaxUploadMB  int    `mapstructure:"max_upload_mb"`
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

// OpenAIConfig holds OpenAI API settings shared by every OpenAI backend.
type OpenAIConfig struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	TranscriptionModel  string `mapstructure:"transcription_model"`
	ClassificationModel string `mapstructure:"classification_model"`
	PersonaModel        string `mapstructure:"persona_model"`
	SummaryModel        string `mapstructure:"summary_model"`
	TTSModel            string `mapstructure:"tts_model"`
	TTSVoice            string `mapstructure:"tts_voice"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"` // full model id or "haiku" / "sonnet"
	MaxTokens int    `mapstructure:"max_tokens"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Backend  string             `mapstructure:"backend"` // "openai" or "local"
	Language string             `mapstructure:"language"`
	Local    LocalWhisperConfig `mapstructure:"local"`
}

// LocalWhisperConfig holds self-hosted Whisper settings.
type LocalWhisperConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (whisper-asr-webservice)
	Model     string `mapstructure:"model"`
	VADFilter bool   `mapstructure:"vad_filter"`
	Language  string `mapstructure:"language"`
}

// InferenceConfig selects the completion backend used for tone
// classification and the end-of-session critique. Persona replies always
// go through the OpenAI Responses API.
type InferenceConfig struct {
	Backend string `mapstructure:"backend"` // "openai" or "anthropic"
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Backend string          `mapstructure:"backend"` // "openai", "google" or "piper"
	Piper   PiperConfig     `mapstructure:"piper"`
	Google  GoogleTTSConfig `mapstructure:"google"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string            `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices   map[string]string `mapstructure:"voices"`   // ISO-639-1 language code -> Piper voice model name
}

// GoogleTTSConfig holds Google Cloud Text-to-Speech settings. Credentials
// come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleTTSConfig struct {
	Voice        string  `mapstructure:"voice"`
	LanguageCode string  `mapstructure:"language_code"`
	SpeakingRate float64 `mapstructure:"speaking_rate"`
}

// PersonaConfig tunes the simulated customer.
type PersonaConfig struct {
	FrustrationThreshold int `mapstructure:"frustration_threshold"`
}

// SummaryConfig tunes the end-of-session critique.
type SummaryConfig struct {
	MaxWords int `mapstructure:"max_words"`
}

// SessionConfig selects where conversation state lives.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"` // "memory" or "redis"
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./storefront.yaml, ./configs/storefront.yaml, /etc/storefront/storefront.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/storefront")
	}

	// Environment variables: STOREFRONT_OPENAI_API_KEY, STOREFRONT_SESSION_BACKEND, etc.
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The file is optional: env vars and defaults are sufficient.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.OpenAI.APIKey = resolveEnvRef(cfg.OpenAI.APIKey)
	cfg.Anthropic.APIKey = resolveEnvRef(cfg.Anthropic.APIKey)
	cfg.Session.Redis.Password = resolveEnvRef(cfg.Session.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.grpc_health.enabled", false)
	v.SetDefault("server.grpc_health.port", 50051)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_upload_mb", 25)
	v.SetDefault("transports.http.cookie_name", "storefront_session")
	v.SetDefault("transports.http.cookie_secure", false)
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.classification_model", "gpt-4.1-mini")
	v.SetDefault("openai.persona_model", "gpt-4.1")
	v.SetDefault("openai.summary_model", "gpt-4.1-mini")
	v.SetDefault("openai.tts_model", "gpt-4o-mini-tts")
	v.SetDefault("openai.tts_voice", "marin")
	v.SetDefault("anthropic.model", "haiku")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("stt.backend", "openai")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.local.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("stt.local.type", "openai")
	v.SetDefault("stt.local.vad_filter", false)
	v.SetDefault("inference.backend", "openai")
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.backend", "openai")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.google.voice", "en-US-Chirp3-HD-Leda")
	v.SetDefault("tts.google.language_code", "en-US")
	v.SetDefault("persona.frustration_threshold", 3)
	v.SetDefault("summary.max_words", 200)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.prefix", "storefront")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "storefront")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects unknown backends and nonsensical limits.
func (c *Config) Validate() error {
	switch c.STT.Backend {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}
	switch c.Inference.Backend {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown inference backend %q", c.Inference.Backend)
	}
	if c.TTS.Enabled {
		switch c.TTS.Backend {
		case "openai", "google", "piper":
		default:
			return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
		}
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Persona.FrustrationThreshold < 1 {
		return fmt.Errorf("persona.frustration_threshold must be positive, got %d", c.Persona.FrustrationThreshold)
	}
	if c.Transports.HTTP.MaxUploadMB < 1 {
		return fmt.Errorf("transports.http.max_upload_mb must be positive, got %d", c.Transports.HTTP.MaxUploadMB)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config. Records
// logged with a span in their context carry trace_id and span_id.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(observability.NewTraceHandler(handler)))
}
