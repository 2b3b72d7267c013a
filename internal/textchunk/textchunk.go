// Package textchunk splits arbitrarily long text into length-bounded chunks
// that are safe to send to external translation and speech providers.
//
// Chunks never split a word and prefer not to split a sentence: the text is
// first cut at sentence boundaries, sentences that are still too long are cut
// into word groups, and the resulting pieces are greedily packed back together
// with single-space joins. Lengths are measured in bytes because provider
// request ceilings are byte-oriented.
package textchunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/parlance/pkg/types"
)

// Split returns text as an ordered sequence of chunks, each at most maxLen
// bytes long. A single word longer than maxLen is kept whole in its own chunk.
//
// If len(text) <= maxLen the result is []string{text}, unchanged. Empty
// chunks are never emitted otherwise. maxLen must be positive.
func Split(text string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("textchunk: split: %w", types.InvalidArgument("maxLen", "must be positive"))
	}
	if len(text) <= maxLen {
		return []string{text}, nil
	}

	p := packer{maxLen: maxLen}
	for _, sentence := range SplitSentences(text) {
		if len(sentence) <= maxLen {
			p.add(sentence)
			continue
		}
		for _, group := range wordGroups(sentence, maxLen) {
			p.add(group)
		}
	}
	return p.finish(), nil
}

// SplitSentences cuts text after every '.', '!' or '?' that is followed by
// whitespace. The terminator stays with its sentence; surrounding whitespace
// is trimmed and empty sentences are dropped.
func SplitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if i+1 >= len(text) {
			break
		}
		r, _ := utf8.DecodeRuneInString(text[i+1:])
		if !unicode.IsSpace(r) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// wordGroups splits sentence on whitespace and greedily packs the words into
// groups of at most maxLen bytes.
func wordGroups(sentence string, maxLen int) []string {
	p := packer{maxLen: maxLen}
	for _, w := range strings.Fields(sentence) {
		p.add(w)
	}
	return p.finish()
}

// packer accumulates pieces into chunks joined by single spaces.
type packer struct {
	maxLen int
	cur    strings.Builder
	out    []string
}

func (p *packer) add(piece string) {
	if p.cur.Len() == 0 {
		p.cur.WriteString(piece)
		return
	}
	if p.cur.Len()+1+len(piece) <= p.maxLen {
		p.cur.WriteByte(' ')
		p.cur.WriteString(piece)
		return
	}
	p.flush()
	p.cur.WriteString(piece)
}

func (p *packer) flush() {
	if s := strings.TrimSpace(p.cur.String()); s != "" {
		p.out = append(p.out, s)
	}
	p.cur.Reset()
}

func (p *packer) finish() []string {
	p.flush()
	return p.out
}
