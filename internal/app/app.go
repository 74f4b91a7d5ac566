// Package app wires all recbooth subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithDevice, WithSubmitter, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/korralabs/recbooth/internal/config"
	"github.com/korralabs/recbooth/internal/health"
	"github.com/korralabs/recbooth/internal/httpapi"
	"github.com/korralabs/recbooth/internal/observe"
	"github.com/korralabs/recbooth/internal/resilience"
	"github.com/korralabs/recbooth/internal/session"
	"github.com/korralabs/recbooth/internal/submit"
	"github.com/korralabs/recbooth/internal/verify"
	"github.com/korralabs/recbooth/pkg/analyzer"
	"github.com/korralabs/recbooth/pkg/capture"
	capmock "github.com/korralabs/recbooth/pkg/capture/mock"
	"github.com/korralabs/recbooth/pkg/capture/wavfile"
	"github.com/korralabs/recbooth/pkg/transcribe"
)

// shutdownGrace bounds the HTTP server drain during shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes and serves the booth HTTP API.
type App struct {
	cfg *config.Config

	// Capabilities — injected via options or built from config in New.
	device      capture.Device
	analyzer    analyzer.Analyzer
	transcriber transcribe.Service
	submitter   session.Submitter
	metrics     *observe.Metrics

	controller *session.Controller
	selection  *httpapi.Selection
	server     *http.Server

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDevice injects a capture device instead of building one from config.
func WithDevice(d capture.Device) Option {
	return func(a *App) { a.device = d }
}

// WithAnalyzer injects an analyzer instead of the HTTP client.
func WithAnalyzer(an analyzer.Analyzer) Option {
	return func(a *App) { a.analyzer = an }
}

// WithTranscriber injects a transcription service instead of the websocket
// client.
func WithTranscriber(s transcribe.Service) Option {
	return func(a *App) { a.transcriber = s }
}

// WithSubmitter injects a submitter instead of the multipart HTTP client.
func WithSubmitter(s session.Submitter) Option {
	return func(a *App) { a.submitter = s }
}

// WithMetrics injects a metrics set instead of the default one.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: capture device,
// analysis and transcription clients, submission client, the session loaded
// from the manifest, and the HTTP server with the command API, health, and
// metrics endpoints.
func New(cfg *config.Config, manifest *config.Manifest, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initCapabilities(); err != nil {
		return nil, err
	}

	sess, err := session.New(manifest.SessionIdentity(), manifest.TokenSeeds(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("app: build session: %w", err)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.selection = httpapi.NewSelection()

	var verifier session.Verifier
	if cfg.Verify.Threshold > 0 {
		verifier = verify.New(verify.WithThreshold(cfg.Verify.Threshold))
	}

	a.controller, err = session.NewController(session.ControllerConfig{
		Session:     sess,
		Device:      a.device,
		Submitter:   a.submitter,
		Analyzer:    a.analyzer,
		Transcriber: a.transcriber,
		Selection:   a.selection,
		Verifier:    verifier,
		Metrics:     a.metrics,
		Policy: session.Policy{
			Constraints:  cfg.Capture.Constraints,
			QualityCheck: cfg.Analyzer.QualityCheck,
			AutoTrim:     cfg.Analyzer.AutoTrim,
			Trim:         cfg.Analyzer.Trim,
			OnLastNext:   cfg.Session.OnLastNext,
			Language:     cfg.Transcriber.Language,
		},
		NewPlayable: newTempPlayable,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build controller: %w", err)
	}

	a.server = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: a.buildMux(),
	}
	return a, nil
}

// initCapabilities builds the capability clients the options did not inject.
func (a *App) initCapabilities() error {
	if a.device == nil {
		switch a.cfg.Capture.Source {
		case config.SourceMock, "":
			a.device = &capmock.Device{}
		case config.SourceWavFile:
			dev, err := wavfile.New(a.cfg.Capture.WavDir)
			if err != nil {
				return fmt.Errorf("app: open take directory: %w", err)
			}
			a.device = dev
		default:
			return fmt.Errorf("app: unknown capture source %q", a.cfg.Capture.Source)
		}
	}

	if a.analyzer == nil && a.cfg.Analyzer.URL != "" {
		var opts []analyzer.Option
		if a.cfg.Analyzer.Timeout > 0 {
			opts = append(opts, analyzer.WithTimeout(a.cfg.Analyzer.Timeout.Std()))
		}
		client, err := analyzer.New(a.cfg.Analyzer.URL, opts...)
		if err != nil {
			return fmt.Errorf("app: build analyzer client: %w", err)
		}
		a.analyzer = resilience.GuardAnalyzer(client, resilience.CircuitBreakerConfig{})
	}

	if a.transcriber == nil && a.cfg.Transcriber.URL != "" {
		client, err := transcribe.New(a.cfg.Transcriber.URL)
		if err != nil {
			return fmt.Errorf("app: build transcriber client: %w", err)
		}
		a.transcriber = client
	}

	if a.submitter == nil {
		client, err := submit.New(a.cfg.Session.SubmitURL)
		if err != nil {
			return fmt.Errorf("app: build submit client: %w", err)
		}
		a.submitter = client
	}
	return nil
}

// buildMux assembles the HTTP routes: the command API behind the observe
// middleware, health probes, and the Prometheus scrape endpoint.
func (a *App) buildMux() http.Handler {
	api := http.NewServeMux()
	httpapi.New(a.controller, a.selection).Register(api)

	root := http.NewServeMux()
	root.Handle("/api/", observe.Middleware(a.metrics)(api))
	a.buildHealth().Register(root)
	root.Handle("GET /metrics", promhttp.Handler())
	return root
}

// buildHealth registers readiness checks for the booth's dependencies.
func (a *App) buildHealth() *health.Handler {
	var checkers []health.Checker
	if a.cfg.Analyzer.URL != "" {
		checkers = append(checkers, health.Endpoint("analyzer", a.cfg.Analyzer.URL, nil))
	}
	if a.cfg.Transcriber.URL != "" {
		checkers = append(checkers, health.Endpoint("transcriber", a.cfg.Transcriber.URL, nil))
	}
	if a.cfg.Capture.Source == config.SourceWavFile {
		checkers = append(checkers, health.Dir("takes", a.cfg.Capture.WavDir))
	}
	return health.New(checkers...)
}

// Controller exposes the session controller, mainly for tests.
func (a *App) Controller() *session.Controller {
	return a.controller
}

// Handler returns the root HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves the HTTP API until ctx is cancelled, then drains in-flight
// requests. Returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("booth api listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Shutdown drains the HTTP server. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		err = a.server.Shutdown(ctx)
	})
	return err
}
