package synth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/parlance/pkg/audio"
	ttsmock "github.com/MrWong99/parlance/pkg/provider/tts/mock"
)

func longText(sentences int) string {
	var b strings.Builder
	for i := range sentences {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("This sentence is here to make the text comfortably long enough, number ")
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteByte('.')
	}
	return b.String()
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"Hello,   world!", "Hello, world!"},
		{"  <b>hi</b> :) ", "bhib"},
		{"It's 5 o'clock?", "It's 5 o'clock?"},
		// Decomposed "ệ" is recomposed rather than stripped.
		{"Vie\u0323\u0302t Nam", "Vi\u1ec7t Nam"},
		{"tab\tand\nnewline", "tab and newline"},
		{"@#$%", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSynthesize_Empty(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Audio: []byte("a")}
	got, degraded := New(m).Synthesize(context.Background(), " %%% ", "en")
	if got != "" || degraded {
		t.Errorf("Synthesize = %q, %v; want empty, false", got, degraded)
	}
	if m.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", m.CallCount())
	}
}

func TestSynthesize_SingleRequest(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Audio: []byte("mp3-bytes")}
	got, degraded := New(m).Synthesize(context.Background(), "Hello there!", "en")
	if degraded {
		t.Error("unexpected degradation")
	}
	if want := base64.StdEncoding.EncodeToString([]byte("mp3-bytes")); got != want {
		t.Errorf("Synthesize = %q, want %q", got, want)
	}
	calls := m.Snapshot()
	if len(calls) != 1 || calls[0].Text != "Hello there!" || calls[0].Lang != "en" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSynthesize_SingleRequestFailure(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Err: errors.New("boom")}
	got, degraded := New(m).Synthesize(context.Background(), "Hello", "en")
	if got != "" || !degraded {
		t.Errorf("Synthesize = %q, %v; want empty, true", got, degraded)
	}
}

func TestSynthesize_ChunkCap(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Audio: []byte("x")}
	a := New(m, WithPacing(0))

	got, degraded := a.Synthesize(context.Background(), longText(40), "en")
	if degraded {
		t.Error("unexpected degradation")
	}
	if n := m.CallCount(); n != DefaultMaxChunks {
		t.Fatalf("calls = %d, want %d", n, DefaultMaxChunks)
	}
	for i, c := range m.Snapshot() {
		if len(c.Text) > DefaultChunkSize {
			t.Errorf("chunk %d has %d bytes, want <= %d", i, len(c.Text), DefaultChunkSize)
		}
	}
	decoded, _ := base64.StdEncoding.DecodeString(got)
	if string(decoded) != strings.Repeat("x", DefaultMaxChunks) {
		t.Errorf("audio = %q", decoded)
	}
}

func TestSynthesize_SkipsFailedChunks(t *testing.T) {
	t.Parallel()
	n := 0
	m := &ttsmock.Provider{SynthesizeFunc: func(text, lang string) ([]byte, error) {
		n++
		if n == 2 {
			return nil, errors.New("transient")
		}
		return []byte{byte('0' + n)}, nil
	}}
	got, degraded := New(m, WithPacing(0), WithMaxChunks(3)).Synthesize(context.Background(), longText(10), "en")
	if !degraded {
		t.Error("expected degradation")
	}
	decoded, _ := base64.StdEncoding.DecodeString(got)
	if string(decoded) != "13" {
		t.Errorf("audio = %q, want 13", decoded)
	}
}

func TestSynthesize_AllChunksFail(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Err: errors.New("down")}
	got, degraded := New(m, WithPacing(0)).Synthesize(context.Background(), longText(10), "en")
	if got != "" || !degraded {
		t.Errorf("Synthesize = %q, %v; want empty, true", got, degraded)
	}
}

func TestSynthesize_MergesWAVChunks(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{SynthesizeFunc: func(text, lang string) ([]byte, error) {
		return audio.EncodeWAV([]byte{1, 0}, 16000, 1, 16), nil
	}}
	got, _ := New(m, WithPacing(0), WithMaxChunks(3)).Synthesize(context.Background(), longText(10), "en")
	decoded, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	info, err := audio.ParseWAV(decoded)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if info.DataLen != 6 {
		t.Errorf("DataLen = %d, want 6", info.DataLen)
	}
}

func TestSynthesize_Pacing(t *testing.T) {
	t.Parallel()
	m := &ttsmock.Provider{Audio: []byte("x")}
	a := New(m, WithPacing(20*time.Millisecond), WithMaxChunks(4))

	start := time.Now()
	a.Synthesize(context.Background(), longText(10), "en")
	// The first request is immediate, the next three wait one interval each.
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 60ms of pacing", elapsed)
	}
}

func TestSynthesize_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &ttsmock.Provider{Audio: []byte("x")}
	got, degraded := New(m, WithPacing(time.Hour)).Synthesize(ctx, longText(10), "en")
	if got != "" || !degraded {
		t.Errorf("Synthesize = %q, %v; want empty, true", got, degraded)
	}
}
