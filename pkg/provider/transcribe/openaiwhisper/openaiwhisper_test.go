package openaiwhisper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/parlance/pkg/types"
)

func TestProvider_Transcribe(t *testing.T) {
	var gotPath, gotModel, gotLang, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotModel, gotLang = r.FormValue("model"), r.FormValue("language")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task":"transcribe","language":"english","duration":2.5,"text":"I am fine."}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	h, err := p.Upload(ctx, strings.NewReader("RIFF-audio"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	job, err := p.Submit(ctx, h, "en")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != types.JobCompleted || job.Text != "I am fine." || job.AudioDuration != 2.5 {
		t.Errorf("job = %+v", job)
	}
	if gotPath != "/v1/audio/transcriptions" || gotModel != "whisper-1" || gotLang != "en" || gotAuth != "Bearer sk-test" {
		t.Errorf("request path=%q model=%q lang=%q auth=%q", gotPath, gotModel, gotLang, gotAuth)
	}
}

func TestProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			p, _ := New("sk-test", WithBaseURL(srv.URL+"/v1"))
			ctx := context.Background()
			h, _ := p.Upload(ctx, strings.NewReader("x"))
			job, err := p.Submit(ctx, h, "en")
			if tt.wantErr {
				if !errors.Is(err, types.ErrProviderUnavailable) {
					t.Errorf("err = %v, want ErrProviderUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if job.Status != types.JobError || !strings.Contains(job.Error, "Invalid file format.") {
				t.Errorf("job = %+v", job)
			}
		})
	}
}

func TestNew_EmptyKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error")
	}
}
