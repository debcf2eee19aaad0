// Package http implements the web transport for storefront.
//
// It serves the practice page, accepts recorded utterances (multipart
// upload or JSON text), manages the session cookie and exposes the
// session lifecycle and Swagger docs. Turns for the same session are
// never run concurrently: a second request while one is in flight gets
// 409 Conflict.
package http

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nadzzz/storefront/internal/config"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/summary"
	"github.com/nadzzz/storefront/internal/turn"
)

//go:embed web/index.html
var webFS embed.FS

// SessionHeader lets API clients pass the session id without cookies.
const SessionHeader = "X-Storefront-Session"

// Simulator is the conversation backend the transport drives.
type Simulator interface {
	Run(ctx context.Context, sessionID string, in turn.Input) (*turn.Result, error)
	Start(ctx context.Context, sessionID string) (*session.State, error)
	State(ctx context.Context, sessionID string) (*session.State, error)
	End(ctx context.Context, sessionID string) (*summary.Critique, error)
}

// Transport serves the web UI and JSON API over HTTP.
type Transport struct {
	port         int
	sim          Simulator
	locker       *session.Locker
	cookieName   string
	cookieSecure bool
	maxUpload    int64
	tracing      bool
	server       *http.Server
}

// Option configures a Transport.
type Option func(*Transport)

// WithTracing wraps the handler with otelhttp server instrumentation.
func WithTracing(enabled bool) Option {
	return func(t *Transport) { t.tracing = enabled }
}

// New creates a new HTTP transport.
func New(cfg config.HTTPConfig, sim Simulator, opts ...Option) *Transport {
	t := &Transport{
		port:         cfg.Port,
		sim:          sim,
		locker:       session.NewLocker(),
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		maxUpload:    int64(cfg.MaxUploadMB) << 20,
	}
	if t.cookieName == "" {
		t.cookieName = "storefront_session"
	}
	if t.maxUpload <= 0 {
		t.maxUpload = 25 << 20
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handler returns the routed HTTP handler.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", t.handleIndex)
	mux.HandleFunc("POST /upload_audio", t.handleUploadAudio)
	mux.HandleFunc("POST /turn/text", t.handleTextTurn)
	mux.HandleFunc("POST /session/start", t.handleSessionStart)
	mux.HandleFunc("POST /session/end", t.handleSessionEnd)
	mux.HandleFunc("GET /session", t.handleSession)

	// Swagger UI, serving the docs registered by the docs package.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if !t.tracing {
		return mux
	}
	return otelhttp.NewHandler(mux, "storefront.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ListenAndServe starts the HTTP server. It blocks until the context is cancelled.
func (t *Transport) ListenAndServe(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// sessionID returns the caller's session id: the header, then the cookie.
func (t *Transport) sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(t.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// ensureSession returns the caller's session id, issuing a new one (and
// its cookie) when the request carries none.
func (t *Transport) ensureSession(w http.ResponseWriter, r *http.Request) string {
	id := t.sessionID(r)
	if id == "" {
		id = session.NewID()
		t.setCookie(w, id)
	}
	return id
}

func (t *Transport) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
