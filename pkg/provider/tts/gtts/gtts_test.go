package gtts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/parlance/pkg/types"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/translate_tts" || q.Get("tl") != "vi" || q.Get("q") != "xin chào" || q.Get("client") != "tw-ob" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("\xff\xfbmp3"))
	}))
	defer srv.Close()

	got, err := New(WithBaseURL(srv.URL)).Synthesize(context.Background(), "xin chào", "vi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != "\xff\xfbmp3" {
		t.Errorf("audio = %q", got)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"empty body", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(WithBaseURL(srv.URL)).Synthesize(context.Background(), "hi", "en")
			if !errors.Is(err, types.ErrProviderUnavailable) {
				t.Errorf("err = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}
