package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/parlance/pkg/provider/llm"
	llmmock "github.com/MrWong99/parlance/pkg/provider/llm/mock"
	transcribemock "github.com/MrWong99/parlance/pkg/provider/transcribe/mock"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	translatemock "github.com/MrWong99/parlance/pkg/provider/translate/mock"
	ttsmock "github.com/MrWong99/parlance/pkg/provider/tts/mock"
	"github.com/MrWong99/parlance/pkg/types"
)

var testCfg = FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3}}

func TestLLMFallback_Failover(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: types.ErrProviderUnavailable}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from secondary"}}

	fb := NewLLMFallback(primary, "primary", testCfg)
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from secondary" {
		t.Errorf("Content = %q, want %q", resp.Content, "from secondary")
	}
	if len(primary.Calls()) != 1 || len(secondary.Calls()) != 1 {
		t.Errorf("calls = %d/%d, want 1/1", len(primary.Calls()), len(secondary.Calls()))
	}
}

func TestLLMFallback_CapabilitiesFromPrimary(t *testing.T) {
	primary := &llmmock.Provider{CapabilitiesResult: types.ModelCapabilities{ContextWindow: 100}}
	secondary := &llmmock.Provider{CapabilitiesResult: types.ModelCapabilities{ContextWindow: 200}}
	fb := NewLLMFallback(primary, "primary", testCfg)
	fb.AddFallback("secondary", secondary)

	if got := fb.Capabilities().ContextWindow; got != 100 {
		t.Errorf("ContextWindow = %d, want 100", got)
	}
}

func TestTranslateFallback_MalformedMovesOn(t *testing.T) {
	primary := &translatemock.Provider{Err: translate.ErrMalformedResponse}
	secondary := &translatemock.Provider{Result: "xin chào"}
	fb := NewTranslateFallback(primary, "google", testCfg)
	fb.AddFallback("libre", secondary)

	got, err := fb.Translate(context.Background(), "hello", "en", "vi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "xin chào" {
		t.Errorf("got %q, want %q", got, "xin chào")
	}
	if len(secondary.Calls) != 1 || secondary.Calls[0].Target != "vi" {
		t.Errorf("secondary calls = %+v", secondary.Calls)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	a := &ttsmock.Provider{Err: types.ErrProviderUnavailable}
	b := &ttsmock.Provider{Err: errors.New("boom")}
	fb := NewTTSFallback(a, "elevenlabs", testCfg)
	fb.AddFallback("gtts", b)

	_, err := fb.Synthesize(context.Background(), "hello", "en")
	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
	if a.CallCount() != 1 || b.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.CallCount(), b.CallCount())
	}
}

func TestTranscribeFallback_RoutesToUploadingBackend(t *testing.T) {
	primary := &transcribemock.Provider{UploadErr: types.ErrProviderUnavailable}
	secondary := &transcribemock.Provider{
		Statuses: []types.TranscriptionJob{{Status: types.JobCompleted, Text: "hello"}},
	}
	fb := NewTranscribeFallback(primary, "assemblyai", testCfg)
	fb.AddFallback("whisper", secondary)
	ctx := context.Background()

	handle, err := fb.Upload(ctx, strings.NewReader("wav-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if handle != "whisper:upload-1" {
		t.Errorf("handle = %q, want whisper:upload-1", handle)
	}
	if len(secondary.Uploaded) != 1 || string(secondary.Uploaded[0]) != "wav-bytes" {
		t.Errorf("secondary uploaded %q, want the replayed audio", secondary.Uploaded)
	}

	job, err := fb.Submit(ctx, handle, "en")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID != "whisper:job-1" {
		t.Errorf("job.ID = %q, want whisper:job-1", job.ID)
	}
	if len(secondary.SubmitCalls) != 1 || secondary.SubmitCalls[0].Handle != "upload-1" {
		t.Errorf("secondary SubmitCalls = %+v", secondary.SubmitCalls)
	}
	if len(primary.SubmitCalls) != 0 {
		t.Errorf("primary SubmitCalls = %d, want 0", len(primary.SubmitCalls))
	}

	job, err = fb.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.ID != "whisper:job-1" || job.Status != types.JobCompleted || job.Text != "hello" {
		t.Errorf("job = %+v", job)
	}
}

func TestTranscribeFallback_BadIDs(t *testing.T) {
	fb := NewTranscribeFallback(&transcribemock.Provider{}, "assemblyai", testCfg)
	for _, id := range []string{"no-prefix", "unknown:job-1"} {
		if _, err := fb.Status(context.Background(), id); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("Status(%q) err = %v, want ErrInvalidArgument", id, err)
		}
	}
}
