// Storefront is a role-play trainer for retail staff: a simulated angry
// customer whose product broke after two days answers each spoken turn,
// and a mentor critique closes the session.
//
// Usage:
//
//	storefront [flags]
//	storefront --config /path/to/storefront.yaml
//
// @title       Storefront API
// @version     1.0
// @description Angry-customer role-play trainer: submit spoken or typed salesperson turns and receive the customer's reply and an end-of-session critique.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/nadzzz/storefront/docs"
	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/health"
	"github.com/nadzzz/storefront/internal/llm"
	anthropicllm "github.com/nadzzz/storefront/internal/llm/anthropic"
	openaillm "github.com/nadzzz/storefront/internal/llm/openai"
	"github.com/nadzzz/storefront/internal/observability"
	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/stt"
	localstt "github.com/nadzzz/storefront/internal/stt/local"
	openaistt "github.com/nadzzz/storefront/internal/stt/openai"
	"github.com/nadzzz/storefront/internal/summary"
	"github.com/nadzzz/storefront/internal/tone"
	httptransport "github.com/nadzzz/storefront/internal/transport/http"
	"github.com/nadzzz/storefront/internal/tts"
	googletts "github.com/nadzzz/storefront/internal/tts/google"
	openaitts "github.com/nadzzz/storefront/internal/tts/openai"
	pipertts "github.com/nadzzz/storefront/internal/tts/piper"
	"github.com/nadzzz/storefront/internal/turn"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/storefront.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("storefront %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("storefront starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("storefront failed", "error", err)
		os.Exit(1)
	}
	slog.Info("storefront stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing.ServiceName, version)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		slog.Info("tracing enabled", "service", cfg.Tracing.ServiceName)
	}

	apiClient := &http.Client{Timeout: 90 * time.Second}
	if cfg.Tracing.Enabled {
		apiClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	healthServer := health.New(cfg.Server.HealthPort)

	store, err := newSessionStore(ctx, cfg.Session, healthServer)
	if err != nil {
		return err
	}
	defer store.Close()

	transcriber := newTranscriber(cfg, apiClient)

	classifyCompleter, summaryCompleter := newCompleters(cfg)

	synthesizer, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}
	if synthesizer != nil {
		defer synthesizer.Close()
	}

	orch := turn.New(turn.Components{
		Store:       store,
		Transcriber: transcriber,
		Classifier:  tone.NewClassifier(classifyCompleter),
		Persona: persona.NewEngine(
			openaillm.NewResponder(cfg.OpenAI, apiClient),
			persona.WithThreshold(cfg.Persona.FrustrationThreshold),
		),
		Summarizer:  summary.New(summaryCompleter, cfg.Summary.MaxWords),
		Synthesizer: synthesizer,
		Language:    cfg.STT.Language,
	})

	web := httptransport.New(cfg.Transports.HTTP, orch, httptransport.WithTracing(cfg.Tracing.Enabled))

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	if cfg.Server.GRPCHealth.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := healthServer.ListenAndServeGRPC(ctx, cfg.Server.GRPCHealth.Port); err != nil {
				slog.Error("grpc health server failed", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := web.ListenAndServe(ctx); err != nil {
			slog.Error("http transport failed", "error", err)
			stop()
		}
	}()

	healthServer.SetReady(true)
	slog.Info("storefront ready",
		"http_port", cfg.Transports.HTTP.Port,
		"health_port", cfg.Server.HealthPort,
		"stt", transcriber.Name(),
		"inference", cfg.Inference.Backend,
		"tts_enabled", synthesizer != nil,
		"sessions", cfg.Session.Backend,
		"frustration_threshold", cfg.Persona.FrustrationThreshold)

	<-ctx.Done()
	slog.Info("shutting down, draining...")
	healthServer.SetReady(false)

	if err := web.Close(); err != nil {
		slog.Error("http transport close error", "error", err)
	}
	wg.Wait()
	return nil
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig, hs *health.Server) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		hs.AddCheck("session_store", store.Ping)
		slog.Info("using redis session store", "addr", cfg.Redis.Addr, "ttl", cfg.TTL)
		return store, nil
	default:
		store := session.NewMemoryStore(cfg.TTL)
		if cfg.TTL > 0 && cfg.SweepInterval > 0 {
			go store.Run(ctx, cfg.SweepInterval)
		}
		slog.Info("using in-memory session store", "ttl", cfg.TTL)
		return store, nil
	}
}

func newTranscriber(cfg *config.Config, client *http.Client) stt.Transcriber {
	switch cfg.STT.Backend {
	case "local":
		local := cfg.STT.Local
		if local.Language == "" {
			local.Language = cfg.STT.Language
		}
		slog.Info("using local whisper transcriber", "endpoint", local.Endpoint, "type", local.Type)
		return localstt.New(local, client)
	default:
		slog.Info("using OpenAI transcriber", "model", cfg.OpenAI.TranscriptionModel)
		return openaistt.New(cfg.OpenAI, cfg.STT.Language)
	}
}

// newCompleters returns the backends for tone classification and the critique.
func newCompleters(cfg *config.Config) (classify, critique llm.Completer) {
	switch cfg.Inference.Backend {
	case "anthropic":
		c := anthropicllm.New(cfg.Anthropic)
		slog.Info("using Anthropic for classification and critique", "model", cfg.Anthropic.Model)
		return c, c
	default:
		slog.Info("using OpenAI for classification and critique",
			"classification_model", cfg.OpenAI.ClassificationModel,
			"summary_model", cfg.OpenAI.SummaryModel)
		return openaillm.NewCompleter(cfg.OpenAI, cfg.OpenAI.ClassificationModel, 0),
			openaillm.NewCompleter(cfg.OpenAI, cfg.OpenAI.SummaryModel, 0.4)
	}
}

// newSynthesizer returns nil when text-to-speech is disabled.
func newSynthesizer(ctx context.Context, cfg *config.Config) (tts.Synthesizer, error) {
	if !cfg.TTS.Enabled {
		slog.Info("text-to-speech disabled")
		return nil, nil
	}
	switch cfg.TTS.Backend {
	case "google":
		s, err := googletts.New(ctx, cfg.TTS.Google)
		if err != nil {
			return nil, err
		}
		slog.Info("using Google Cloud TTS", "voice", cfg.TTS.Google.Voice)
		return s, nil
	case "piper":
		slog.Info("using Piper TTS", "endpoint", cfg.TTS.Piper.Endpoint)
		return pipertts.New(cfg.TTS.Piper), nil
	default:
		slog.Info("using OpenAI TTS", "model", cfg.OpenAI.TTSModel, "voice", cfg.OpenAI.TTSVoice)
		return openaitts.New(cfg.OpenAI), nil
	}
}
