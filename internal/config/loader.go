package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/parlance/internal/chat"
	"github.com/MrWong99/parlance/internal/chat/history"
	"github.com/MrWong99/parlance/internal/pronounce"
	"github.com/MrWong99/parlance/internal/resilience"
	"github.com/MrWong99/parlance/internal/synth"
	"github.com/MrWong99/parlance/internal/translation"
)

// Defaults applied by [ApplyDefaults] beyond the ones owned by the service
// packages.
const (
	DefaultListenAddr  = ":8080"
	DefaultServiceName = "parlance"
	DefaultTranslate   = "google"
	DefaultTTS         = "gtts"
	DefaultDictionary  = "freedict"
)

// ValidProviderNames lists the built-in provider names per kind. [Validate]
// warns about anything else, which is fine for factories registered by
// embedders.
var ValidProviderNames = map[string][]string{
	KindLLM:        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	KindTranslate:  {"google", "libre", "llm"},
	KindTTS:        {"gtts", "elevenlabs", "coqui"},
	KindDictionary: {"freedict", "none"},
	KindTranscribe: {"assemblyai", "whisper", "openai"},
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load env file %q: %w", path, err)
	}
	return nil
}

// Load reads the YAML file at path and returns a defaulted, validated
// [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader expands ${VAR} references in r, decodes it strictly
// (unknown keys are errors), applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero field with its documented default.
func ApplyDefaults(cfg *Config) {
	setDefault(&cfg.Server.ListenAddr, DefaultListenAddr)
	setDefault(&cfg.Server.LogLevel, LogInfo)
	setDefault(&cfg.Server.LogFormat, LogFormatText)

	setDefault(&cfg.Providers.Translate.Name, DefaultTranslate)
	setDefault(&cfg.Providers.TTS.Name, DefaultTTS)
	setDefault(&cfg.Providers.Dictionary.Name, DefaultDictionary)

	setDefault(&cfg.Resilience.MaxFailures, resilience.DefaultMaxFailures)
	setDefault(&cfg.Resilience.ResetTimeout, resilience.DefaultResetTimeout)

	setDefault(&cfg.Chat.Store, StoreMemory)
	setDefault(&cfg.Chat.MaxTurns, history.DefaultMaxTurns)
	setDefault(&cfg.Chat.Expire, history.DefaultExpire)
	setDefault(&cfg.Chat.HistoryWindow, chat.DefaultWindow)

	setDefault(&cfg.Translation.ChunkSize, translation.DefaultChunkSize)
	setDefault(&cfg.Translation.MaxAttempts, translation.DefaultMaxAttempts)
	setDefault(&cfg.Translation.Backoff, translation.DefaultBackoff)
	setDefault(&cfg.Translation.Pacing, translation.DefaultPacing)
	setDefault(&cfg.Translation.Workers, 1)

	setDefault(&cfg.Synthesis.SingleRequestLimit, synth.DefaultSingleRequestLimit)
	setDefault(&cfg.Synthesis.ChunkSize, synth.DefaultChunkSize)
	setDefault(&cfg.Synthesis.MaxChunks, synth.DefaultMaxChunks)
	setDefault(&cfg.Synthesis.Pacing, synth.DefaultPacing)

	setDefault(&cfg.Pronunciation.Language, pronounce.DefaultLanguage)
	setDefault(&cfg.Pronunciation.PollInterval, pronounce.DefaultPollInterval)
	setDefault(&cfg.Pronunciation.MaxWait, pronounce.DefaultMaxWait)
	setDefault(&cfg.Pronunciation.WaitFactor, pronounce.DefaultWaitFactor)

	setDefault(&cfg.Telemetry.ServiceName, DefaultServiceName)
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// Validate checks cfg for coherent values and returns every problem found,
// joined. Unknown provider names are only logged.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		add("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel)
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		add("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat)
	}

	providers := []struct {
		kind  string
		entry ProviderEntry
	}{
		{KindLLM, cfg.Providers.LLM},
		{KindTranslate, cfg.Providers.Translate},
		{KindTTS, cfg.Providers.TTS},
		{KindDictionary, cfg.Providers.Dictionary},
		{KindTranscribe, cfg.Providers.Transcribe},
	}
	for _, p := range providers {
		errs = append(errs, validateEntry(p.kind, "providers."+p.kind, p.entry)...)
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("config: providers.llm is not configured; /v1/reply will answer with the fallback text")
	}
	if cfg.Providers.Transcribe.Name == "" {
		slog.Warn("config: providers.transcribe is not configured; /v1/pronunciation is disabled")
	}

	switch cfg.Chat.Store {
	case "", StoreMemory:
	case StoreRedis:
		if cfg.Chat.RedisAddr == "" {
			add("chat.redis_addr is required when chat.store is redis")
		}
	case StorePostgres:
		if cfg.Chat.PostgresDSN == "" {
			add("chat.postgres_dsn is required when chat.store is postgres")
		}
	default:
		add("chat.store %q is invalid; valid values: memory, redis, postgres", cfg.Chat.Store)
	}

	nonNegative := []struct {
		name  string
		value int
	}{
		{"chat.max_turns", cfg.Chat.MaxTurns},
		{"chat.history_window", cfg.Chat.HistoryWindow},
		{"chat.max_tokens", cfg.Chat.MaxTokens},
		{"translation.chunk_size", cfg.Translation.ChunkSize},
		{"translation.max_attempts", cfg.Translation.MaxAttempts},
		{"translation.workers", cfg.Translation.Workers},
		{"synthesis.single_request_limit", cfg.Synthesis.SingleRequestLimit},
		{"synthesis.chunk_size", cfg.Synthesis.ChunkSize},
		{"synthesis.max_chunks", cfg.Synthesis.MaxChunks},
		{"resilience.max_failures", cfg.Resilience.MaxFailures},
	}
	for _, n := range nonNegative {
		if n.value < 0 {
			add("%s must not be negative, got %d", n.name, n.value)
		}
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"chat.expire", cfg.Chat.Expire},
		{"translation.backoff", cfg.Translation.Backoff},
		{"translation.pacing", cfg.Translation.Pacing},
		{"synthesis.pacing", cfg.Synthesis.Pacing},
		{"pronunciation.poll_interval", cfg.Pronunciation.PollInterval},
		{"pronunciation.max_wait", cfg.Pronunciation.MaxWait},
		{"resilience.reset_timeout", cfg.Resilience.ResetTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			add("%s must not be negative, got %s", d.name, d.value)
		}
	}
	if cfg.Chat.Temperature < 0 || cfg.Chat.Temperature > 2 {
		add("chat.temperature %.2f is out of range [0, 2]", cfg.Chat.Temperature)
	}
	if cfg.Pronunciation.WaitFactor < 0 {
		add("pronunciation.wait_factor must not be negative, got %v", cfg.Pronunciation.WaitFactor)
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		add("telemetry.sample_ratio %v is out of range [0, 1]", r)
	}
	if cfg.Chat.HistoryWindow > cfg.Chat.MaxTurns && cfg.Chat.MaxTurns > 0 {
		slog.Warn("config: chat.history_window exceeds chat.max_turns; the prompt will never see more than max_turns",
			"history_window", cfg.Chat.HistoryWindow, "max_turns", cfg.Chat.MaxTurns)
	}

	return errors.Join(errs...)
}

// validateEntry checks one provider entry and its fallbacks.
func validateEntry(kind, path string, e ProviderEntry) []error {
	var errs []error
	if e.Name == "" {
		if len(e.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s.name is required when fallbacks are configured", path))
		}
		return errs
	}
	warnUnknownProvider(kind, e.Name)

	seen := map[string]int{e.Name: -1}
	for i, fb := range e.Fallbacks {
		fbPath := fmt.Sprintf("%s.fallbacks[%d]", path, i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", fbPath))
			continue
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s: nested fallbacks are not supported", fbPath))
		}
		if _, dup := seen[fb.Name]; dup {
			errs = append(errs, fmt.Errorf("%s.name %q is already used in this chain", fbPath, fb.Name))
		}
		seen[fb.Name] = i
		warnUnknownProvider(kind, fb.Name)
	}
	return errs
}

func warnUnknownProvider(kind, name string) {
	known := ValidProviderNames[kind]
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("config: unknown provider name, may be a typo or a custom registration",
		"kind", kind, "name", name, "known", known)
}
