package phonetic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Lexicon is an offline word → IPA table loaded from a tab-separated file.
// A Lexicon is read-only after loading and safe for concurrent use.
type Lexicon struct {
	entries map[string]string
}

// Len reports the number of words in the lexicon.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Lookup returns the IPA for the lower-cased word.
func (l *Lexicon) Lookup(word string) (string, bool) {
	if l == nil {
		return "", false
	}
	ipa, ok := l.entries[norm.NFC.String(word)]
	return ipa, ok
}

// LoadLexiconFile opens path and parses it with [LoadLexicon].
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("phonetic: open lexicon: %w", err)
	}
	defer f.Close()
	return LoadLexicon(f)
}

// LoadLexicon parses lines of the form
//
//	word<TAB>/ipa/
//	word<TAB>/ipa1/, /ipa2/
//
// keeping the first pronunciation per word. Blank lines, lines starting with
// '#' and lines without a tab are skipped. The first occurrence of a word wins.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	l := &Lexicon{entries: make(map[string]string)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, ipa := parseLexiconLine(line)
		if word == "" || ipa == "" {
			continue
		}
		if _, dup := l.entries[word]; !dup {
			l.entries[word] = ipa
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phonetic: read lexicon: %w", err)
	}
	return l, nil
}

func parseLexiconLine(line string) (string, string) {
	word, raw, ok := strings.Cut(line, "\t")
	if !ok {
		return "", ""
	}
	word = norm.NFC.String(strings.ToLower(strings.TrimSpace(word)))
	raw = strings.TrimSpace(raw)

	// Prefer the first /.../ segment; fall back to the whole field.
	if start := strings.IndexByte(raw, '/'); start >= 0 {
		if end := strings.IndexByte(raw[start+1:], '/'); end > 0 {
			return word, norm.NFC.String(strings.TrimSpace(raw[start+1 : start+1+end]))
		}
	}
	return word, norm.NFC.String(normalizeEntry(raw))
}
