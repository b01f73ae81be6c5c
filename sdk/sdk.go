// Package sdk is the entrypoint authors import to declare functions and run
// them against the bridge. It threads the registry, emitter, and session
// provider through one explicit App object rather than global singletons
// (the bridge is built by the runtime phase itself) - spec §9's
// recommended redesign of the source's global-registry pattern, with the
// introspect/runtime phase choice reduced to a startup branch in App.Run.
package sdk

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/browserbase/sdk-functions-go/bridge"
	"github.com/browserbase/sdk-functions-go/config"
	"github.com/browserbase/sdk-functions-go/httpserver"
	"github.com/browserbase/sdk-functions-go/manifest"
	"github.com/browserbase/sdk-functions-go/metrics"
	"github.com/browserbase/sdk-functions-go/registry"
	"github.com/browserbase/sdk-functions-go/runtimeloop"
	"github.com/browserbase/sdk-functions-go/session"
)

// Option configures a single function registration.
type Option func(*registry.Config)

// WithSessionConfig attaches the opaque session configuration forwarded to
// the SessionProvider verbatim.
func WithSessionConfig(cfg map[string]interface{}) Option {
	return func(c *registry.Config) { c.SessionConfig = cfg }
}

// WithParametersSchema attaches a parameter validator, rendered to JSON
// Schema when the manifest is persisted.
func WithParametersSchema(v registry.Validator) Option {
	return func(c *registry.Config) { c.ParametersSchema = v }
}

// App is the explicit, non-global context threading the registry, emitter,
// and session provider through one process run; runRuntime creates the
// bridge when the runtime phase starts.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Emitter  *manifest.Emitter

	Sessions session.Provider
}

// New loads configuration from the environment and prepares an App. Sessions
// defaults to an in-memory StaticProvider unless BROWSERBASE_API_KEY is set,
// in which case a real BrowserbaseProvider is built from the "browserbase"
// connection template under Config.Browserbase.TemplateDir.
func New() *App {
	cfg := config.LoadConfig()
	configureLogging(cfg.Environment)

	return &App{
		Config:   cfg,
		Registry: registry.New(),
		Emitter:  manifest.NewEmitter(cfg.ManifestDir),
		Sessions: newSessionProvider(cfg),
	}
}

// newSessionProvider resolves the Browserbase connection template when the
// environment supplies an API key, falling back to the in-memory
// StaticProvider on missing credentials or a bad/missing template so a
// broken template file never blocks the introspect phase or local dev.
func newSessionProvider(cfg *config.Config) session.Provider {
	if cfg.Browserbase.APIKey == "" {
		return session.NewStaticProvider()
	}

	provider, err := session.NewBrowserbaseProviderFromTemplate(
		cfg.Browserbase.TemplateDir, "browserbase", cfg.Browserbase.APIKey, cfg.Browserbase.ProjectID,
	)
	if err != nil {
		log.Warn().Err(err).Str("template_dir", cfg.Browserbase.TemplateDir).
			Msg("failed to load browserbase connection template, falling back to static session provider")
		return session.NewStaticProvider()
	}
	return provider
}

// RegisterFunction declares one handler unit. In every phase it registers
// the handler in the in-process registry; in the introspect phase it also
// writes the function's manifest.
func (a *App) RegisterFunction(name string, handler registry.Handler, opts ...Option) {
	cfg := registry.Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	a.Registry.Register(name, handler, cfg)

	if a.Config.Phase == config.PhaseIntrospect {
		manifestEntry, _ := a.Registry.GetByName(name)
		if err := a.Emitter.Emit(a.Registry, manifestEntry); err != nil {
			log.Error().Str("function", name).Err(err).Msg("failed to emit manifest")
		}
	}
}

// Run dispatches on Config.Phase: introspect exits immediately after every
// RegisterFunction call above has already emitted its manifest; runtime
// starts the bridge, HTTP server, and polling loop and blocks until signaled.
func (a *App) Run() {
	if a.Config.Phase == config.PhaseIntrospect {
		log.Info().Int("functions", a.Registry.Size()).Msg("introspect phase complete")
		return
	}
	a.runRuntime()
}

func (a *App) runRuntime() {
	br := bridge.New()
	manifests := manifest.NewStore(a.Config.ManifestDir)
	m, reg := metrics.New()

	srv := httpserver.New(a.Config, br, manifests, a.Sessions, m, metrics.Handler(reg))

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	httpSrv := &http.Server{
		Addr:         a.Config.Server.Port,
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	if httpSrv.Addr != "" && httpSrv.Addr[0] != ':' {
		httpSrv.Addr = ":" + httpSrv.Addr
	}

	metricsMux := http.NewServeMux()
	srv.RegisterMetricsRoutes(metricsMux)
	metricsSrv := &http.Server{Addr: a.Config.MetricsAddr, Handler: metricsMux}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("bridge listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("bridge server failed to start")
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed to start")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		cancel()
	}()

	loop := runtimeloop.New(a.Config.RuntimeAPI, a.Registry, a.Config.IsProduction())
	loop.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("bridge server forced to shutdown")
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info().Msg("exited properly")
}

// configureLogging sets up the logger based on the environment tag, mirroring
// the teacher's configureLogging but keyed off config.Environment instead of
// a raw level string.
func configureLogging(env config.Environment) {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	if env == config.EnvProduction {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
