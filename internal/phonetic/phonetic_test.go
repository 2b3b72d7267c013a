package phonetic

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/parlance/pkg/provider/dictionary/mock"
)

func TestAnnotate_StaticWordMakesNoLookup(t *testing.T) {
	t.Parallel()
	dict := &mock.Provider{}
	a := New(dict)

	got := a.Annotate(context.Background(), "the")
	if got != "/ðə/" {
		t.Errorf("Annotate(the) = %q, want /ðə/", got)
	}
	if n := dict.CallCount(); n != 0 {
		t.Errorf("dictionary calls = %d, want 0", n)
	}
}

func TestAnnotate_Empty(t *testing.T) {
	t.Parallel()
	a := New(&mock.Provider{})
	for _, in := range []string{"", "   ", "?!"} {
		if got := a.Annotate(context.Background(), in); got != "" {
			t.Errorf("Annotate(%q) = %q, want empty", in, got)
		}
	}
}

func TestAnnotate_DictionaryNormalization(t *testing.T) {
	t.Parallel()
	dict := &mock.Provider{Entries: map[string][]string{
		"hello": {"/həˈləʊ/, /hɛˈloʊ/"},
		"world": {"[wɜːld]"},
	}}
	got := New(dict).Annotate(context.Background(), "Hello, world!")
	if got != "/həˈləʊ wɜːld/" {
		t.Errorf("Annotate = %q, want /həˈləʊ wɜːld/", got)
	}
}

func TestAnnotate_FallbackOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		word      string
		entries   map[string][]string
		want      string
		wantCalls []string
	}{
		{
			word:      "walked",
			entries:   map[string][]string{"walk": {"/wɔːk/"}},
			want:      "/wɔːk/",
			wantCalls: []string{"walked", "walk"},
		},
		{
			word:      "flies",
			entries:   map[string][]string{"fly": {"/flaɪ/"}},
			want:      "/flaɪ/",
			wantCalls: []string{"flies", "flie", "fli", "fly"},
		},
		{
			word:      "making",
			entries:   map[string][]string{"make": {"/meɪk/"}},
			want:      "/meɪk/",
			wantCalls: []string{"making", "mak", "make"},
		},
		{
			word:      "cats",
			entries:   map[string][]string{"cat": {"/kæt/"}},
			want:      "/kæt/",
			wantCalls: []string{"cats", "cat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			dict := &mock.Provider{Entries: tt.entries}
			got := New(dict).Annotate(context.Background(), tt.word)
			if got != tt.want {
				t.Errorf("Annotate(%q) = %q, want %q", tt.word, got, tt.want)
			}
			if !slices.Equal(dict.Calls, tt.wantCalls) {
				t.Errorf("lookups = %q, want %q", dict.Calls, tt.wantCalls)
			}
		})
	}
}

func TestAnnotate_Placeholder(t *testing.T) {
	t.Parallel()
	dict := &mock.Provider{Err: errors.New("network down")}
	got := New(dict).Annotate(context.Background(), "the Zyxwv")
	if got != "/ðə zyxwv/" {
		t.Errorf("Annotate = %q, want /ðə zyxwv/", got)
	}
}

func TestAnnotate_RepeatedWordResolvedOnce(t *testing.T) {
	t.Parallel()
	dict := &mock.Provider{Entries: map[string][]string{"hello": {"/həˈləʊ/"}}}
	got := New(dict).Annotate(context.Background(), "hello hello")
	if got != "/həˈləʊ həˈləʊ/" {
		t.Errorf("Annotate = %q", got)
	}
	if n := dict.CallCount(); n != 1 {
		t.Errorf("dictionary calls = %d, want 1", n)
	}
}

func TestAnnotate_LexiconBeforeDictionary(t *testing.T) {
	t.Parallel()
	lex, err := LoadLexicon(strings.NewReader("# comment\nhello\t/hɛˈloʊ/\n"))
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	dict := &mock.Provider{Entries: map[string][]string{"hello": {"/həˈləʊ/"}}}
	got := New(dict, WithLexicon(lex)).Annotate(context.Background(), "hello")
	if got != "/hɛˈloʊ/" {
		t.Errorf("Annotate = %q, want /hɛˈloʊ/", got)
	}
	if n := dict.CallCount(); n != 0 {
		t.Errorf("dictionary calls = %d, want 0", n)
	}
}

func TestAnnotate_NilDictionary(t *testing.T) {
	t.Parallel()
	got := New(nil).Annotate(context.Background(), "I'm learning")
	if got != "/aɪm learning/" {
		t.Errorf("Annotate = %q, want /aɪm learning/", got)
	}
}

func TestLoadLexicon(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"",
		"# header",
		"Apple\t/ˈæpəl/",
		"tomato\t/təˈmeɪtoʊ/, /təˈmɑːtəʊ/",
		"apple\t/ˈæpl̩/",
		"noslash\tnoʊslæʃ",
		"broken line without tab",
	}, "\n")
	lex, err := LoadLexicon(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.Len() != 3 {
		t.Errorf("Len = %d, want 3", lex.Len())
	}
	cases := map[string]string{
		"apple":   "ˈæpəl",
		"tomato":  "təˈmeɪtoʊ",
		"noslash": "noʊslæʃ",
	}
	for w, want := range cases {
		if got, ok := lex.Lookup(w); !ok || got != want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", w, got, ok, want)
		}
	}
}

func TestStemCandidates(t *testing.T) {
	t.Parallel()
	got := stemCandidates("studies")
	want := []string{"studie", "studi", "study"}
	if !slices.Equal(got, want) {
		t.Errorf("stemCandidates(studies) = %q, want %q", got, want)
	}
	if got := stemCandidates("s"); len(got) != 0 {
		t.Errorf("stemCandidates(s) = %q, want none", got)
	}
}
