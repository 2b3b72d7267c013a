package llm

import "testing"

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		model     string
		wantCtx   int
		wantMaxTk int
	}{
		{"gpt-4o-mini", 128_000, 16_384},
		{"GPT-4o", 128_000, 16_384},
		{"gpt-4", 8_192, 4_096},
		{"gpt-3.5-turbo", 16_385, 4_096},
		{"o1-mini", 128_000, 65_536},
		{"o3-mini", 200_000, 100_000},
		{"claude-3-5-sonnet-latest", 200_000, 8_192},
		{"claude-3-opus-20240229", 200_000, 4_096},
		{"gemini-1.5-pro", 2_097_152, 8_192},
		{"gemini-2.0-flash", 1_048_576, 8_192},
		{"llama3.1:8b", 32_768, 4_096},
		{"something-new", 128_000, 4_096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := CapabilitiesFor(tt.model)
			if caps.ContextWindow != tt.wantCtx {
				t.Errorf("ContextWindow = %d, want %d", caps.ContextWindow, tt.wantCtx)
			}
			if caps.MaxOutputTokens != tt.wantMaxTk {
				t.Errorf("MaxOutputTokens = %d, want %d", caps.MaxOutputTokens, tt.wantMaxTk)
			}
			if !caps.SupportsStreaming {
				t.Error("SupportsStreaming = false, want true")
			}
		})
	}
}
