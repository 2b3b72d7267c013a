// Package translation implements the translation pipeline: chunk the input,
// translate each chunk with bounded retry and pacing, reassemble in order,
// then add IPA for English sides and synthesized audio for both sides.
//
// Chunk failures degrade rather than abort. A chunk that exhausts its
// attempts is passed through untranslated and reported in
// TranslationResult.DegradedChunks.
package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/internal/textchunk"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/types"
)

// Defaults for a [Pipeline].
const (
	DefaultChunkSize   = 800
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
	DefaultPacing      = 200 * time.Millisecond
)

// Annotator renders text as IPA. Satisfied by *phonetic.Annotator.
type Annotator interface {
	Annotate(ctx context.Context, text string) string
}

// Synthesizer renders text as base64 audio and reports degradation.
// Satisfied by *synth.Assembler.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) (string, bool)
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithChunkSize sets the chunk bound in bytes.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithMaxAttempts sets how many times a chunk is tried before it is passed
// through untranslated.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithBackoff sets the base retry delay. Attempt k waits k times this value.
func WithBackoff(d time.Duration) Option {
	return func(p *Pipeline) { p.backoff = d }
}

// WithPacing sets the minimum gap between chunk requests. Zero disables
// pacing.
func WithPacing(d time.Duration) Option {
	return func(p *Pipeline) { p.pacing = d }
}

// WithWorkers translates up to n chunks concurrently. All workers share one
// pacing limiter. Values <= 1 translate sequentially.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithAnnotator enables IPA annotation for English text.
func WithAnnotator(a Annotator) Option {
	return func(p *Pipeline) { p.annotator = a }
}

// WithSynthesizer enables audio for both sides.
func WithSynthesizer(s Synthesizer) Option {
	return func(p *Pipeline) { p.synth = s }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline translates text. It is safe for concurrent use.
type Pipeline struct {
	tr          translate.Provider
	annotator   Annotator
	synth       Synthesizer
	chunkSize   int
	maxAttempts int
	backoff     time.Duration
	pacing      time.Duration
	workers     int
	metrics     *observe.Metrics
}

// New creates a Pipeline around tr.
func New(tr translate.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		tr:          tr,
		chunkSize:   DefaultChunkSize,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		pacing:      DefaultPacing,
		workers:     1,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Translate translates text from source to target. All three arguments are
// required. The only errors returned are invalid arguments and context
// cancellation; provider failures degrade the result instead.
func (p *Pipeline) Translate(ctx context.Context, text, source, target string) (*types.TranslationResult, error) {
	text, source, target = strings.TrimSpace(text), strings.TrimSpace(source), strings.TrimSpace(target)
	switch {
	case text == "":
		return nil, fmt.Errorf("translation: %w", types.InvalidArgument("text", "must not be empty"))
	case source == "":
		return nil, fmt.Errorf("translation: %w", types.InvalidArgument("sourceLang", "must not be empty"))
	case target == "":
		return nil, fmt.Errorf("translation: %w", types.InvalidArgument("targetLang", "must not be empty"))
	}

	ctx, span := observe.StartSpan(ctx, "translation.Translate")
	defer span.End()

	chunks, err := textchunk.Split(text, p.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("translation: %w", err)
	}

	out, degraded, err := p.translateChunks(ctx, chunks, source, target)
	if err != nil {
		return nil, fmt.Errorf("translation: %w", err)
	}

	res := &types.TranslationResult{Translated: strings.Join(out, " ")}
	for i, d := range degraded {
		if d {
			res.DegradedChunks = append(res.DegradedChunks, i)
		}
	}
	res.Degraded = len(res.DegradedChunks) > 0
	p.metrics.RecordDegradedChunks(ctx, "translate", len(res.DegradedChunks))

	if p.annotator != nil {
		if IsEnglish(source) {
			ipa := p.annotator.Annotate(ctx, text)
			res.SourceIPA = &ipa
		}
		if IsEnglish(target) {
			ipa := p.annotator.Annotate(ctx, res.Translated)
			res.TargetIPA = &ipa
		}
	}

	if p.synth != nil {
		p.synthesizeBoth(ctx, res, text, source, target)
	}
	return res, nil
}

// translateChunks returns one output per chunk, in input order, and which
// chunks were passed through untranslated.
func (p *Pipeline) translateChunks(ctx context.Context, chunks []string, source, target string) ([]string, []bool, error) {
	out := make([]string, len(chunks))
	degraded := make([]bool, len(chunks))
	limiter := newLimiter(p.pacing)

	if p.workers <= 1 || len(chunks) == 1 {
		for i, c := range chunks {
			s, d, err := p.translateChunk(ctx, limiter, i, c, source, target)
			if err != nil {
				return nil, nil, err
			}
			out[i], degraded[i] = s, d
		}
		return out, degraded, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, c := range chunks {
		g.Go(func() error {
			s, d, err := p.translateChunk(gctx, limiter, i, c, source, target)
			if err != nil {
				return err
			}
			out[i], degraded[i] = s, d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, degraded, nil
}

// translateChunk tries a chunk up to maxAttempts times. It returns the
// original chunk and true once attempts are exhausted. A non-nil error means
// ctx was cancelled.
func (p *Pipeline) translateChunk(ctx context.Context, limiter *rate.Limiter, idx int, chunk, source, target string) (string, bool, error) {
	log := observe.Logger(ctx)
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", false, err
		}

		out, err := p.tr.Translate(ctx, chunk, source, target)
		if err == nil && strings.TrimSpace(out) == "" {
			err = translate.ErrMalformedResponse
		}
		if err == nil {
			return strings.TrimSpace(out), false, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		log.Warn("translation: chunk failed", "chunk", idx, "attempt", attempt, "err", err)
		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(p.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		case <-timer.C:
		}
	}

	log.Warn("translation: chunk passed through untranslated", "chunk", idx, "attempts", p.maxAttempts)
	return chunk, true, nil
}

func (p *Pipeline) synthesizeBoth(ctx context.Context, res *types.TranslationResult, original, source, target string) {
	var origDegraded, transDegraded bool
	var g errgroup.Group
	g.Go(func() error {
		res.OriginalAudio, origDegraded = p.synth.Synthesize(ctx, original, source)
		return nil
	})
	g.Go(func() error {
		res.TranslatedAudio, transDegraded = p.synth.Synthesize(ctx, res.Translated, target)
		return nil
	})
	_ = g.Wait()
	res.AudioDegraded = origDegraded || transDegraded
}

// IsEnglish reports whether tag is an English BCP-47 tag ("en", "en-US",
// "EN").
func IsEnglish(tag string) bool {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return false
	}
	base, conf := t.Base()
	return conf != language.No && base == englishBase
}

var englishBase, _ = language.English.Base()

func newLimiter(pacing time.Duration) *rate.Limiter {
	if pacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pacing), 1)
}
