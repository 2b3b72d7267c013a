package coqui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/parlance/pkg/audio"
	"github.com/MrWong99/parlance/pkg/types"
)

func TestSynthesize_Standard(t *testing.T) {
	wav := audio.EncodeWAV([]byte{1, 0, 2, 0}, 22050, 1, 16)
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tts" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{"text": q.Get("text"), "speaker_id": q.Get("speaker_id"), "language_id": q.Get("language_id")}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithSpeaker("p225"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Synthesize(context.Background(), "Hello.", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != string(wav) {
		t.Error("expected the WAV to be returned unchanged")
	}
	want := map[string]string{"text": "Hello.", "speaker_id": "p225", "language_id": "en"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestSynthesize_XTTS(t *testing.T) {
	var got xttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tts_to_audio/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(audio.EncodeWAV([]byte{0, 0}, 24000, 1, 16))
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithAPIMode(APIModeXTTS), WithSpeaker("Ana Florence"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "Bonjour", "fr"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if want := (xttsRequest{Text: "Bonjour", SpeakerWav: "Ana Florence", Language: "fr"}); got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestSynthesize_Resamples(t *testing.T) {
	pcm := make([]byte, 200) // 100 samples at 8 kHz
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(audio.EncodeWAV(pcm, 8000, 1, 16))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, WithOutputSampleRate(16000))
	out, err := p.Synthesize(context.Background(), "hi", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	info, err := audio.ParseWAV(out)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if info.SampleRate != 16000 || info.DataLen != 400 {
		t.Errorf("rate = %d, data = %d, want 16000, 400", info.SampleRate, info.DataLen)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"server error", http.StatusInternalServerError, []byte("model not loaded")},
		{"not a wav", http.StatusOK, []byte("<html>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			p, _ := New(srv.URL)
			if _, err := p.Synthesize(context.Background(), "hi", "en"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSynthesize_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := New(srv.URL)
	_, err := p.Synthesize(context.Background(), "hi", "en")
	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty serverURL")
	}
	if _, err := New("http://x", WithAPIMode(APIModeXTTS)); err == nil {
		t.Error("expected error for XTTS without speaker")
	}
}
