// Package phonetic renders English text as a broad IPA transcription.
//
// Each word is resolved from, in order: a built-in table of function words
// and contractions, an optional offline [Lexicon], a [dictionary.Provider],
// and finally a fixed list of suffix-stripping fallbacks that re-query the
// lexicon and dictionary with candidate stems. Words that resolve nowhere
// are rendered as themselves, lower-cased.
package phonetic

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/pkg/provider/dictionary"
)

// Option is a functional option for configuring an Annotator.
type Option func(*Annotator)

// WithLexicon installs an offline lexicon consulted before the dictionary.
func WithLexicon(l *Lexicon) Option {
	return func(a *Annotator) {
		a.lexicon = l
	}
}

// Annotator produces IPA strings for text. It holds no per-request state and
// is safe for concurrent use.
type Annotator struct {
	dict    dictionary.Provider
	lexicon *Lexicon
}

// New creates an Annotator. dict may be nil, in which case only the static
// table and the lexicon are consulted.
func New(dict dictionary.Provider, opts ...Option) *Annotator {
	a := &Annotator{dict: dict}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Annotate returns the IPA rendering of text wrapped in slashes, for example
// "/həˈləʊ wɜːld/". Text with no words yields "".
//
// One dictionary request is made per unresolved word and fallback candidate,
// so latency grows with sentence length. Repeated words within one call are
// resolved once.
func (a *Annotator) Annotate(ctx context.Context, text string) string {
	words := tokenize(text)
	if len(words) == 0 {
		return ""
	}

	ctx, span := observe.StartSpan(ctx, "phonetic.Annotate")
	defer span.End()

	seen := make(map[string]string, len(words))
	parts := make([]string, 0, len(words))
	for _, w := range words {
		ipa, ok := seen[w]
		if !ok {
			ipa = a.word(ctx, w)
			seen[w] = ipa
		}
		parts = append(parts, ipa)
	}
	return "/" + strings.Join(parts, " ") + "/"
}

func (a *Annotator) word(ctx context.Context, w string) string {
	if ipa, ok := staticIPA[w]; ok {
		return ipa
	}
	if ipa, ok := a.resolve(ctx, w); ok {
		return ipa
	}
	for _, stem := range stemCandidates(w) {
		if ipa, ok := a.resolve(ctx, stem); ok {
			return ipa
		}
	}
	return w
}

// resolve consults the lexicon and then the dictionary for a single word.
func (a *Annotator) resolve(ctx context.Context, w string) (string, bool) {
	if ipa, ok := a.lexicon.Lookup(w); ok {
		return ipa, true
	}
	if a.dict == nil || ctx.Err() != nil {
		return "", false
	}
	entries, err := a.dict.Lookup(ctx, w)
	if err != nil {
		if !errors.Is(err, dictionary.ErrNotFound) {
			observe.Logger(ctx).Warn("phonetic: dictionary lookup failed", "word", w, "err", err)
		}
		return "", false
	}
	for _, e := range entries {
		if ipa := normalizeEntry(e); ipa != "" {
			return ipa, true
		}
	}
	return "", false
}

// normalizeEntry drops bracket characters and keeps the first
// comma-separated alternative.
func normalizeEntry(s string) string {
	s = strings.NewReplacer("/", "", "[", "", "]", "").Replace(s)
	s, _, _ = strings.Cut(s, ",")
	return strings.TrimSpace(s)
}

// stemCandidates lists stems to retry, in priority order.
func stemCandidates(w string) []string {
	var out []string
	add := func(suffix, repl string) {
		if stem, ok := strings.CutSuffix(w, suffix); ok && stem != "" {
			out = append(out, stem+repl)
		}
	}
	add("s", "")
	add("es", "")
	add("ed", "")
	add("ies", "y")
	add("d", "")
	add("ing", "")
	add("ing", "e")
	return out
}

// tokenize splits text on whitespace, trims leading and trailing punctuation
// and lower-cases each token. Curly apostrophes are folded to ASCII so that
// contractions hit the static table.
func tokenize(text string) []string {
	text = strings.ReplaceAll(text, "’", "'")
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f == "" {
			continue
		}
		out = append(out, strings.ToLower(f))
	}
	return out
}
