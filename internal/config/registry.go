package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/parlance/pkg/provider/dictionary"
	"github.com/MrWong99/parlance/pkg/provider/llm"
	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/provider/tts"
)

// Provider kinds, used as keys in [ValidProviderNames] and in error messages.
const (
	KindLLM        = "llm"
	KindTranslate  = "translate"
	KindTTS        = "tts"
	KindDictionary = "dictionary"
	KindTranscribe = "transcribe"
)

// ErrProviderNotRegistered is returned by the Create methods when no factory
// is registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its config entry.
type Factory[T any] func(ProviderEntry) (T, error)

// Registry maps provider names to factories for each provider kind. It is
// safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	llm        map[string]Factory[llm.Provider]
	translate  map[string]Factory[translate.Provider]
	tts        map[string]Factory[tts.Provider]
	dictionary map[string]Factory[dictionary.Provider]
	transcribe map[string]Factory[transcribe.Provider]
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:        make(map[string]Factory[llm.Provider]),
		translate:  make(map[string]Factory[translate.Provider]),
		tts:        make(map[string]Factory[tts.Provider]),
		dictionary: make(map[string]Factory[dictionary.Provider]),
		transcribe: make(map[string]Factory[transcribe.Provider]),
	}
}

// RegisterLLM registers an LLM factory under name, replacing any previous
// one.
func (r *Registry) RegisterLLM(name string, f Factory[llm.Provider]) { register(r, r.llm, name, f) }

// RegisterTranslate registers a translation factory under name.
func (r *Registry) RegisterTranslate(name string, f Factory[translate.Provider]) {
	register(r, r.translate, name, f)
}

// RegisterTTS registers a speech synthesis factory under name.
func (r *Registry) RegisterTTS(name string, f Factory[tts.Provider]) { register(r, r.tts, name, f) }

// RegisterDictionary registers a dictionary factory under name.
func (r *Registry) RegisterDictionary(name string, f Factory[dictionary.Provider]) {
	register(r, r.dictionary, name, f)
}

// RegisterTranscribe registers a transcription factory under name.
func (r *Registry) RegisterTranscribe(name string, f Factory[transcribe.Provider]) {
	register(r, r.transcribe, name, f)
}

// CreateLLM builds the LLM provider registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	return create(r, r.llm, KindLLM, entry)
}

// CreateTranslate builds the translation provider registered under
// entry.Name.
func (r *Registry) CreateTranslate(entry ProviderEntry) (translate.Provider, error) {
	return create(r, r.translate, KindTranslate, entry)
}

// CreateTTS builds the speech synthesis provider registered under
// entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	return create(r, r.tts, KindTTS, entry)
}

// CreateDictionary builds the dictionary provider registered under
// entry.Name.
func (r *Registry) CreateDictionary(entry ProviderEntry) (dictionary.Provider, error) {
	return create(r, r.dictionary, KindDictionary, entry)
}

// CreateTranscribe builds the transcription provider registered under
// entry.Name.
func (r *Registry) CreateTranscribe(entry ProviderEntry) (transcribe.Provider, error) {
	return create(r, r.transcribe, KindTranscribe, entry)
}

// Names returns the sorted registered names for kind.
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch kind {
	case KindLLM:
		names = keys(r.llm)
	case KindTranslate:
		names = keys(r.translate)
	case KindTTS:
		names = keys(r.tts)
	case KindDictionary:
		names = keys(r.dictionary)
	case KindTranscribe:
		names = keys(r.transcribe)
	}
	slices.Sort(names)
	return names
}

func register[T any](r *Registry, m map[string]Factory[T], name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[name] = f
}

func create[T any](r *Registry, m map[string]Factory[T], kind string, entry ProviderEntry) (T, error) {
	r.mu.RLock()
	f, ok := m[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	p, err := f(entry)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("config: create %s/%s: %w", kind, entry.Name, err)
	}
	return p, nil
}

func keys[T any](m map[string]Factory[T]) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// OptionString returns the string option key, or def when it is absent or
// not a string.
func (e ProviderEntry) OptionString(key, def string) string {
	if v, ok := e.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// OptionFloat returns the numeric option key, or def when it is absent or
// not a number. YAML integers are accepted.
func (e ProviderEntry) OptionFloat(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// OptionStringMap returns the nested string map option key (for example
// per-language voices). Non-string values are skipped.
func (e ProviderEntry) OptionStringMap(key string) map[string]string {
	raw, ok := e.Options[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
