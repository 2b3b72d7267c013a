package freedict

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/MrWong99/parlance/pkg/provider/dictionary"
	"github.com/MrWong99/parlance/pkg/types"
)

func TestLookup_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"word":"hello","phonetic":"/həˈləʊ/","phonetics":[{"text":"/həˈləʊ/","audio":""},{"text":""},{"text":"[hɛˈloʊ]"}]}]`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	got, err := p.Lookup(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v2/entries/en/hello" {
		t.Errorf("path = %q, want /api/v2/entries/en/hello", gotPath)
	}
	want := []string{"/həˈləʊ/", "/həˈləʊ/", "[hɛˈloʊ]"}
	if !slices.Equal(got, want) {
		t.Errorf("Lookup = %q, want %q", got, want)
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"No Definitions Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Lookup(context.Background(), "qwzx")
	if !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLookup_NoPhonetics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"word":"x","phonetics":[]}]`))
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Lookup(context.Background(), "x")
	if !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLookup_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Lookup(context.Background(), "hello")
	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
	if errors.Is(err, dictionary.ErrNotFound) {
		t.Error("server error must not be reported as ErrNotFound")
	}
}
