// Package synth turns text of any length into a single base64 audio payload.
//
// Short text is synthesized in one request. Longer text is chunked, a bounded
// number of chunks are synthesized sequentially with pacing, failing chunks
// are skipped and the rest are concatenated in order. Synthesis never fails
// outright: the worst case is an empty payload flagged as degraded.
package synth

import (
	"context"
	"encoding/base64"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/internal/textchunk"
	"github.com/MrWong99/parlance/pkg/audio"
	"github.com/MrWong99/parlance/pkg/provider/tts"
)

// Defaults for an [Assembler].
const (
	DefaultSingleRequestLimit = 200
	DefaultChunkSize          = 150
	DefaultMaxChunks          = 10
	DefaultPacing             = 300 * time.Millisecond
)

// Option configures an [Assembler].
type Option func(*Assembler)

// WithSingleRequestLimit sets the longest text sent in one request.
func WithSingleRequestLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.singleLimit = n
		}
	}
}

// WithChunkSize sets the chunk bound used for longer text.
func WithChunkSize(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

// WithMaxChunks caps how many chunks are synthesized. Text past the cap is
// dropped.
func WithMaxChunks(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxChunks = n
		}
	}
}

// WithPacing sets the minimum gap between chunk requests. Zero disables
// pacing.
func WithPacing(d time.Duration) Option {
	return func(a *Assembler) { a.pacing = d }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// Assembler synthesizes text through a tts.Provider.
type Assembler struct {
	tts         tts.Provider
	singleLimit int
	chunkSize   int
	maxChunks   int
	pacing      time.Duration
	metrics     *observe.Metrics
}

// New creates an Assembler.
func New(p tts.Provider, opts ...Option) *Assembler {
	a := &Assembler{
		tts:         p,
		singleLimit: DefaultSingleRequestLimit,
		chunkSize:   DefaultChunkSize,
		maxChunks:   DefaultMaxChunks,
		pacing:      DefaultPacing,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Synthesize returns base64-encoded audio for text spoken in lang. The
// boolean reports whether any part of the text could not be synthesized.
// Empty text (after sanitizing) yields "" and false.
func (a *Assembler) Synthesize(ctx context.Context, text, lang string) (string, bool) {
	ctx, span := observe.StartSpan(ctx, "synth.Synthesize")
	defer span.End()
	log := observe.Logger(ctx).With("lang", lang)

	clean := Sanitize(text)
	if clean == "" {
		return "", false
	}

	if len(clean) <= a.singleLimit {
		b, err := a.tts.Synthesize(ctx, clean, lang)
		if err != nil || len(b) == 0 {
			log.Warn("synth: synthesis failed", "chunk", 0, "err", err)
			a.metrics.RecordDegradedChunks(ctx, "synthesize", 1)
			return "", true
		}
		return base64.StdEncoding.EncodeToString(b), false
	}

	chunks, err := textchunk.Split(clean, a.chunkSize)
	if err != nil {
		log.Warn("synth: chunking failed", "err", err)
		return "", true
	}
	if len(chunks) > a.maxChunks {
		log.Info("synth: text truncated", "chunks", len(chunks), "max_chunks", a.maxChunks)
		chunks = chunks[:a.maxChunks]
	}

	limiter := newLimiter(a.pacing)
	parts := make([][]byte, 0, len(chunks))
	failed := 0
	for i, c := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			log.Warn("synth: pacing aborted", "chunk", i, "err", err)
			failed += len(chunks) - i
			break
		}
		b, err := a.tts.Synthesize(ctx, c, lang)
		if err != nil || len(b) == 0 {
			log.Warn("synth: chunk synthesis failed", "chunk", i, "err", err)
			failed++
			continue
		}
		parts = append(parts, b)
	}
	a.metrics.RecordDegradedChunks(ctx, "synthesize", failed)

	if len(parts) == 0 {
		return "", true
	}
	return base64.StdEncoding.EncodeToString(audio.Concat(parts)), failed > 0
}

// Sanitize NFC-normalizes text, keeps letters, marks, digits, whitespace and
// the punctuation ' . , ! ? and collapses runs of whitespace.
func Sanitize(text string) string {
	text = norm.NFC.String(text)
	kept := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case strings.ContainsRune("'.,!?", r):
			return r
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(kept), " ")
}

func newLimiter(pacing time.Duration) *rate.Limiter {
	if pacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pacing), 1)
}
