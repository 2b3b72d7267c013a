package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/parlance/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if d.Changed() {
		t.Errorf("Diff = %+v, want no changes", d)
	}
}

func TestDiff_HotFields(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug
	new.Chat.SystemContext = "You teach Spanish."

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %v/%q", d.LogLevelChanged, d.NewLogLevel)
	}
	if !d.SystemContextChanged || d.NewSystemContext != "You teach Spanish." {
		t.Errorf("system context diff = %v/%q", d.SystemContextChanged, d.NewSystemContext)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9999"
	new.Providers.TTS.Name = "coqui"
	new.Translation.Workers = 3

	d := config.Diff(old, new)
	if d.LogLevelChanged || d.SystemContextChanged {
		t.Errorf("unexpected hot changes: %+v", d)
	}
	want := []string{"server", "providers", "translation"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
}
