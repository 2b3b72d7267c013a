package observe

import (
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestProviderConfig_Sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{1, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		got := ProviderConfig{SampleRatio: tt.ratio}.sampler().Description()
		if got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestProviderConfig_ResourceDefaultsServiceName(t *testing.T) {
	res, err := ProviderConfig{}.resource()
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "parlance" {
			found = true
		}
	}
	if !found {
		t.Errorf("attributes = %v, want service.name=parlance", res.Attributes())
	}
}
