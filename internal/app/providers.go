package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/parlance/internal/config"
	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/internal/resilience"
	"github.com/MrWong99/parlance/pkg/provider/dictionary"
	"github.com/MrWong99/parlance/pkg/provider/dictionary/freedict"
	"github.com/MrWong99/parlance/pkg/provider/llm"
	"github.com/MrWong99/parlance/pkg/provider/llm/anyllm"
	llmopenai "github.com/MrWong99/parlance/pkg/provider/llm/openai"
	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/provider/transcribe/assemblyai"
	"github.com/MrWong99/parlance/pkg/provider/transcribe/openaiwhisper"
	"github.com/MrWong99/parlance/pkg/provider/transcribe/whisper"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/provider/translate/google"
	"github.com/MrWong99/parlance/pkg/provider/translate/libre"
	"github.com/MrWong99/parlance/pkg/provider/translate/llmtranslate"
	"github.com/MrWong99/parlance/pkg/provider/tts"
	"github.com/MrWong99/parlance/pkg/provider/tts/coqui"
	"github.com/MrWong99/parlance/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/parlance/pkg/provider/tts/gtts"
	"github.com/MrWong99/parlance/pkg/types"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured.
type Providers struct {
	LLM        llm.Provider
	Translate  translate.Provider
	TTS        tts.Provider
	Dictionary dictionary.Provider
	Transcribe transcribe.Provider
}

// NewRegistry returns a registry with every built-in provider factory.
// The "llm" translate backend uses whatever LLM the registry produced last,
// so build the LLM slot before the translate slot.
func NewRegistry() *config.Registry {
	reg := config.NewRegistry()
	RegisterBuiltinProviders(reg)
	return reg
}

// RegisterBuiltinProviders wires all built-in provider factories into reg.
func RegisterBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		if org := entry.OptionString("organization", ""); org != "" {
			opts = append(opts, llmopenai.WithOrganization(org))
		}
		if secs := entry.OptionFloat("timeout_seconds", 0); secs > 0 {
			opts = append(opts, llmopenai.WithTimeout(time.Duration(secs*float64(time.Second))))
		}
		if n := entry.OptionFloat("max_retries", -1); n >= 0 {
			opts = append(opts, llmopenai.WithMaxRetries(int(n)))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining backends share one shape: optional key, optional URL.
	for _, providerName := range []string{
		"anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── Translate ─────────────────────────────────────────────────────────
	reg.RegisterTranslate("google", func(entry config.ProviderEntry) (translate.Provider, error) {
		var opts []google.Option
		if entry.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(entry.BaseURL))
		}
		return google.New(opts...), nil
	})

	reg.RegisterTranslate("libre", func(entry config.ProviderEntry) (translate.Provider, error) {
		if entry.BaseURL == "" {
			return nil, types.InvalidArgument("base_url", "required for libre")
		}
		var opts []libre.Option
		if entry.APIKey != "" {
			opts = append(opts, libre.WithAPIKey(entry.APIKey))
		}
		return libre.New(entry.BaseURL, opts...), nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────
	reg.RegisterTTS("gtts", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []gtts.Option
		if entry.BaseURL != "" {
			opts = append(opts, gtts.WithBaseURL(entry.BaseURL))
		}
		if speed := entry.OptionFloat("speed", 0); speed > 0 {
			opts = append(opts, gtts.WithSpeed(speed))
		}
		return gtts.New(opts...), nil
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if outputFmt := entry.OptionString("output_format", ""); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		for lang, voice := range entry.OptionStringMap("voices") {
			opts = append(opts, elevenlabs.WithVoice(lang, voice))
		}
		return elevenlabs.New(entry.APIKey, entry.OptionString("voice", ""), opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if speaker := entry.OptionString("speaker", ""); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		if mode := entry.OptionString("api_mode", ""); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if secs := entry.OptionFloat("timeout_seconds", 0); secs > 0 {
			opts = append(opts, coqui.WithTimeout(time.Duration(secs*float64(time.Second))))
		}
		if rate := entry.OptionFloat("sample_rate", 0); rate > 0 {
			opts = append(opts, coqui.WithOutputSampleRate(int(rate)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Dictionary ────────────────────────────────────────────────────────
	reg.RegisterDictionary("freedict", func(entry config.ProviderEntry) (dictionary.Provider, error) {
		var opts []freedict.Option
		if entry.BaseURL != "" {
			opts = append(opts, freedict.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, freedict.WithLanguage(lang))
		}
		return freedict.New(opts...), nil
	})

	// "none" leaves the annotator with its static table and lexicon.
	reg.RegisterDictionary("none", func(config.ProviderEntry) (dictionary.Provider, error) {
		return nil, nil
	})

	// ── Transcribe ────────────────────────────────────────────────────────
	reg.RegisterTranscribe("assemblyai", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []assemblyai.Option
		if entry.BaseURL != "" {
			opts = append(opts, assemblyai.WithBaseURL(entry.BaseURL))
		}
		return assemblyai.New(entry.APIKey, opts...)
	})

	reg.RegisterTranscribe("whisper", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if mb := entry.OptionFloat("max_upload_mb", 0); mb > 0 {
			opts = append(opts, whisper.WithMaxUploadBytes(int64(mb*(1<<20))))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterTranscribe("openai", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []openaiwhisper.Option
		if entry.Model != "" {
			opts = append(opts, openaiwhisper.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openaiwhisper.WithBaseURL(entry.BaseURL))
		}
		return openaiwhisper.New(entry.APIKey, opts...)
	})

	for _, kind := range []string{config.KindLLM, config.KindTranslate, config.KindTTS, config.KindDictionary, config.KindTranscribe} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// BuildProviders instantiates every provider named in cfg. Each backend is
// wrapped with metrics, and chains with fallbacks are put behind circuit
// breakers. The "llm" translate backend reuses the LLM built here; it is an
// error to select it without an LLM.
func BuildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*Providers, error) {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	fb := resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Resilience.MaxFailures,
		ResetTimeout: cfg.Resilience.ResetTimeout,
	}}
	ps := &Providers{}

	var err error
	ps.LLM, err = buildChain(cfg.Providers.LLM, config.KindLLM, reg.CreateLLM,
		func(name string, p llm.Provider) llm.Provider { return resilience.NewInstrumentedLLM(name, p, m) },
		func(primary llm.Provider, name string) chain[llm.Provider] {
			return resilience.NewLLMFallback(primary, name, withName(fb, "llm"))
		})
	if err != nil {
		return nil, err
	}

	// "llm" is not a registry entry because it needs the LLM built above.
	createTranslate := func(entry config.ProviderEntry) (translate.Provider, error) {
		if entry.Name == "llm" {
			if ps.LLM == nil {
				return nil, fmt.Errorf("app: translate backend %q requires providers.llm", entry.Name)
			}
			return llmtranslate.New(ps.LLM), nil
		}
		return reg.CreateTranslate(entry)
	}
	ps.Translate, err = buildChain(cfg.Providers.Translate, config.KindTranslate, createTranslate,
		func(name string, p translate.Provider) translate.Provider {
			return resilience.NewInstrumentedTranslate(name, p, m)
		},
		func(primary translate.Provider, name string) chain[translate.Provider] {
			return resilience.NewTranslateFallback(primary, name, withName(fb, "translate"))
		})
	if err != nil {
		return nil, err
	}

	ps.TTS, err = buildChain(cfg.Providers.TTS, config.KindTTS, reg.CreateTTS,
		func(name string, p tts.Provider) tts.Provider { return resilience.NewInstrumentedTTS(name, p, m) },
		func(primary tts.Provider, name string) chain[tts.Provider] {
			return resilience.NewTTSFallback(primary, name, withName(fb, "tts"))
		})
	if err != nil {
		return nil, err
	}

	// Dictionary lookups are cheap misses; no fallback chain.
	if entry := cfg.Providers.Dictionary; entry.Name != "" {
		d, err := reg.CreateDictionary(entry)
		if err != nil {
			return nil, fmt.Errorf("app: create dictionary provider %q: %w", entry.Name, err)
		}
		ps.Dictionary = d
		slog.Info("provider created", "kind", config.KindDictionary, "name", entry.Name)
	}

	ps.Transcribe, err = buildChain(cfg.Providers.Transcribe, config.KindTranscribe, reg.CreateTranscribe,
		func(name string, p transcribe.Provider) transcribe.Provider {
			return resilience.NewInstrumentedTranscribe(name, p, m)
		},
		func(primary transcribe.Provider, name string) chain[transcribe.Provider] {
			return resilience.NewTranscribeFallback(primary, name, withName(fb, "transcribe"))
		})
	if err != nil {
		return nil, err
	}

	return ps, nil
}

// chain is the shape shared by the resilience fallback wrappers.
type chain[T any] interface {
	AddFallback(name string, p T)
}

// buildChain creates entry and its fallbacks. A blank entry yields the zero
// value. With no fallbacks the instrumented primary is returned directly.
func buildChain[T any](
	entry config.ProviderEntry,
	kind string,
	create func(config.ProviderEntry) (T, error),
	instrument func(name string, p T) T,
	newChain func(primary T, name string) chain[T],
) (T, error) {
	var zero T
	if entry.Name == "" {
		return zero, nil
	}

	primary, err := create(entry)
	if err != nil {
		return zero, fmt.Errorf("app: create %s provider %q: %w", kind, entry.Name, err)
	}
	primary = instrument(entry.Name, primary)
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)

	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	c := newChain(primary, entry.Name)
	for _, fe := range entry.Fallbacks {
		p, err := create(fe)
		if err != nil {
			return zero, fmt.Errorf("app: create %s fallback %q: %w", kind, fe.Name, err)
		}
		c.AddFallback(fe.Name, instrument(fe.Name, p))
		slog.Info("fallback provider created", "kind", kind, "name", fe.Name, "model", fe.Model)
	}
	out, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("app: %s fallback chain does not implement the provider interface", kind)
	}
	return out, nil
}

func withName(fb resilience.FallbackConfig, name string) resilience.FallbackConfig {
	fb.CircuitBreaker.Name = name
	return fb
}

// unavailableLLM stands in when no LLM is configured so that replies take
// the fallback path instead of failing.
type unavailableLLM struct{}

var _ llm.Provider = unavailableLLM{}

var errNoLLM = errors.New("no llm provider configured")

func (unavailableLLM) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, errNoLLM)
}

func (unavailableLLM) Capabilities() types.ModelCapabilities { return types.ModelCapabilities{} }
