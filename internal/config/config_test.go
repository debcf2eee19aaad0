package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Transports.HTTP.Port)
	require.Equal(t, "storefront_session", cfg.Transports.HTTP.CookieName)
	require.Equal(t, 3, cfg.Persona.FrustrationThreshold)
	require.Equal(t, 200, cfg.Summary.MaxWords)
	require.Equal(t, "memory", cfg.Session.Backend)
	require.Equal(t, 2*time.Hour, cfg.Session.TTL)
	require.Equal(t, "marin", cfg.OpenAI.TTSVoice)
	require.Equal(t, "openai", cfg.Inference.Backend)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	yaml := `
openai:
  api_key: "${TEST_STOREFRONT_KEY}"
persona:
  frustration_threshold: 5
session:
  backend: redis
  ttl: 30m
  redis:
    addr: redis:6379
tts:
  backend: piper
  piper:
    voices:
      en: en_GB-alba-medium
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TEST_STOREFRONT_KEY", "sk-from-env")
	t.Setenv("STOREFRONT_SUMMARY_MAX_WORDS", "120")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	require.Equal(t, 5, cfg.Persona.FrustrationThreshold)
	require.Equal(t, 120, cfg.Summary.MaxWords)
	require.Equal(t, "redis", cfg.Session.Backend)
	require.Equal(t, 30*time.Minute, cfg.Session.TTL)
	require.Equal(t, "redis:6379", cfg.Session.Redis.Addr)
	require.Equal(t, "en_GB-alba-medium", cfg.TTS.Piper.Voices["en"])
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("persona:\n  frustration_threshold: 0\n"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "frustration_threshold")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Transports: TransportsConfig{HTTP: HTTPConfig{MaxUploadMB: 25}},
			STT:        STTConfig{Backend: "openai"},
			Inference:  InferenceConfig{Backend: "anthropic"},
			TTS:        TTSConfig{Enabled: true, Backend: "google"},
			Persona:    PersonaConfig{FrustrationThreshold: 3},
			Session:    SessionConfig{Backend: "memory"},
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	c = valid()
	c.STT.Backend = "vosk"
	require.ErrorContains(t, c.Validate(), "stt backend")

	c = valid()
	c.Inference.Backend = "ollama"
	require.ErrorContains(t, c.Validate(), "inference backend")

	c = valid()
	c.TTS.Backend = "espeak"
	require.ErrorContains(t, c.Validate(), "tts backend")
	c.TTS.Enabled = false
	require.NoError(t, c.Validate())

	c = valid()
	c.Session.Backend = "postgres"
	require.ErrorContains(t, c.Validate(), "session backend")
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("TEST_STOREFRONT_SECRET", "s3cret")
	require.Equal(t, "s3cret", resolveEnvRef("${TEST_STOREFRONT_SECRET}"))
	require.Equal(t, "${TEST_STOREFRONT_UNSET}", resolveEnvRef("${TEST_STOREFRONT_UNSET}"))
	require.Equal(t, "literal", resolveEnvRef("literal"))
}
