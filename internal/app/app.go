// Package app wires all parlance subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes background maintenance until the context is done,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithHistoryStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/parlance/internal/api"
	"github.com/MrWong99/parlance/internal/chat"
	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/internal/chat/history/postgres"
	redisstore "github.com/MrWong99/parlance/internal/chat/history/redis"
	"github.com/MrWong99/parlance/internal/config"
	"github.com/MrWong99/parlance/internal/health"
	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/internal/phonetic"
	"github.com/MrWong99/parlance/internal/pronounce"
	"github.com/MrWong99/parlance/internal/synth"
	"github.com/MrWong99/parlance/internal/translation"
)

// DefaultReapInterval is how often expired conversation rows are deleted
// from stores that do not expire them natively.
const DefaultReapInterval = time.Minute

// reaper is implemented by history stores that need periodic cleanup.
type reaper interface {
	Reap(ctx context.Context) (int64, error)
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics
	level     *slog.LevelVar

	// Subsystems, initialised in New and torn down in Shutdown.
	store       history.Store
	annotator   *phonetic.Annotator
	synthesizer *synth.Assembler
	translator  *translation.Pipeline
	chat        *chat.Service
	assessor    *pronounce.Assessor
	checkers    []health.Checker

	reapInterval time.Duration

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a conversation store instead of creating one from
// config. The caller keeps ownership of s.
func WithHistoryStore(s history.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics overrides the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets [App.ApplyConfig] change the log level at runtime.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithReapInterval overrides [DefaultReapInterval].
func WithReapInterval(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.reapInterval = d
		}
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// usually comes from [BuildProviders].
//
// New performs all initialisation synchronously: history store connection,
// lexicon loading and service construction.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:          cfg,
		providers:    providers,
		reapInterval: DefaultReapInterval,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if providers.Translate == nil {
		return nil, fmt.Errorf("app: a translate provider is required")
	}
	if providers.TTS == nil {
		return nil, fmt.Errorf("app: a tts provider is required")
	}

	// ── 1. History store ─────────────────────────────────────────────────
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	// ── 2. Phonetic annotator ────────────────────────────────────────────
	if err := a.initPhonetic(); err != nil {
		return nil, fmt.Errorf("app: init phonetic: %w", err)
	}

	// ── 3. Synthesis + translation ───────────────────────────────────────
	a.initTranslation()

	// ── 4. Chat ──────────────────────────────────────────────────────────
	a.initChat()

	// ── 5. Pronunciation (optional) ──────────────────────────────────────
	a.initPronunciation()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initHistory connects the configured conversation store unless one was
// injected.
func (a *App) initHistory(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	c := a.cfg.Chat
	limits := history.Limits{MaxTurns: c.MaxTurns, Expire: c.Expire}

	switch c.Store {
	case config.StoreRedis:
		store, err := redisstore.Dial(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, redisstore.WithLimits(limits))
		if err != nil {
			return err
		}
		a.store = store
		a.checkers = append(a.checkers, health.PingChecker("history", store))
		a.closers = append(a.closers, store.Close)
		slog.Info("chat history store ready", "store", c.Store, "addr", c.RedisAddr)

	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, c.PostgresDSN, postgres.WithLimits(limits))
		if err != nil {
			return err
		}
		a.store = store
		a.checkers = append(a.checkers, health.PingChecker("history", store))
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		slog.Info("chat history store ready", "store", c.Store)

	default:
		a.store = history.NewMemoryStore(history.WithLimits(limits))
		slog.Info("chat history store ready", "store", config.StoreMemory)
	}
	return nil
}

// initPhonetic builds the IPA annotator, loading the optional lexicon file.
func (a *App) initPhonetic() error {
	var opts []phonetic.Option
	if path := a.cfg.Phonetic.LexiconFile; path != "" {
		lex, err := phonetic.LoadLexiconFile(path)
		if err != nil {
			return err
		}
		opts = append(opts, phonetic.WithLexicon(lex))
		slog.Info("loaded pronunciation lexicon", "path", path, "entries", lex.Len())
	}
	a.annotator = phonetic.New(a.providers.Dictionary, opts...)
	return nil
}

// initTranslation builds the synthesis assembler and the translation
// pipeline that feeds it.
func (a *App) initTranslation() {
	s := a.cfg.Synthesis
	a.synthesizer = synth.New(a.providers.TTS,
		synth.WithSingleRequestLimit(s.SingleRequestLimit),
		synth.WithChunkSize(s.ChunkSize),
		synth.WithMaxChunks(s.MaxChunks),
		synth.WithPacing(s.Pacing),
		synth.WithMetrics(a.metrics),
	)

	t := a.cfg.Translation
	a.translator = translation.New(a.providers.Translate,
		translation.WithChunkSize(t.ChunkSize),
		translation.WithMaxAttempts(t.MaxAttempts),
		translation.WithBackoff(t.Backoff),
		translation.WithPacing(t.Pacing),
		translation.WithWorkers(t.Workers),
		translation.WithAnnotator(a.annotator),
		translation.WithSynthesizer(a.synthesizer),
		translation.WithMetrics(a.metrics),
	)
}

// initChat builds the reply service. Without an LLM every reply takes the
// fallback path.
func (a *App) initChat() {
	provider := a.providers.LLM
	if provider == nil {
		slog.Warn("no llm provider configured, replies will use the fallback text")
		provider = unavailableLLM{}
	}
	c := a.cfg.Chat
	a.chat = chat.New(a.store, provider,
		chat.WithWindow(c.HistoryWindow),
		chat.WithSystemContext(c.SystemContext),
		chat.WithTemperature(c.Temperature),
		chat.WithMaxTokens(c.MaxTokens),
		chat.WithMetrics(a.metrics),
	)
}

// initPronunciation builds the assessor when a transcription backend exists.
func (a *App) initPronunciation() {
	if a.providers.Transcribe == nil {
		slog.Warn("no transcribe provider configured, pronunciation scoring is disabled")
		return
	}
	p := a.cfg.Pronunciation
	a.assessor = pronounce.New(a.providers.Transcribe,
		pronounce.WithLanguage(p.Language),
		pronounce.WithPollInterval(p.PollInterval),
		pronounce.WithMaxWait(p.MaxWait),
		pronounce.WithWaitFactor(p.WaitFactor),
		pronounce.WithMetrics(a.metrics),
	)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Chat returns the conversational reply service.
func (a *App) Chat() *chat.Service { return a.chat }

// Translator returns the translation pipeline.
func (a *App) Translator() *translation.Pipeline { return a.translator }

// Assessor returns the pronunciation assessor, or nil when no transcription
// backend is configured.
func (a *App) Assessor() *pronounce.Assessor { return a.assessor }

// Handler returns the full HTTP surface: the v1 API, health probes and the
// Prometheus scrape endpoint, all behind the request metrics middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	var apiOpts []api.Option
	if a.assessor != nil {
		apiOpts = append(apiOpts, api.WithAssessor(a.assessor))
	}
	api.New(a.chat, a.translator, apiOpts...).Register(mux)
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run performs background maintenance and blocks until ctx is cancelled.
// Stores that expire rows lazily are reaped every reap interval.
func (a *App) Run(ctx context.Context) error {
	r, ok := a.store.(reaper)
	if !ok {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(a.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.Reap(ctx)
			if err != nil {
				slog.Warn("history reap failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("reaped expired conversation turns", "count", n)
			}
		}
	}
}

// ApplyConfig applies the hot-reloadable part of a config change and logs
// the sections that need a restart. It matches the signature expected by
// [config.NewWatcher].
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SystemContextChanged {
		a.chat.SetSystemContext(d.NewSystemContext)
		slog.Info("chat system context updated")
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config sections changed that need a restart", "sections", d.RestartRequired)
	}
}

// SlogLevel maps a config level to its slog equivalent.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
