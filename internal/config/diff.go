package config

import "reflect"

// ConfigDiff describes what changed between two configs. Only the log level
// and the chat system context are applied live; anything else is listed in
// RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SystemContextChanged bool
	NewSystemContext     string

	// RestartRequired names the top-level sections whose changes only take
	// effect after a restart.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.SystemContextChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Chat.SystemContext != new.Chat.SystemContext {
		d.SystemContextChanged = true
		d.NewSystemContext = new.Chat.SystemContext
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	oldChat, newChat := old.Chat, new.Chat
	oldChat.SystemContext, newChat.SystemContext = "", ""

	sections := []struct {
		name     string
		old, new any
	}{
		{"server", oldServer, newServer},
		{"providers", old.Providers, new.Providers},
		{"resilience", old.Resilience, new.Resilience},
		{"chat", oldChat, newChat},
		{"translation", old.Translation, new.Translation},
		{"synthesis", old.Synthesis, new.Synthesis},
		{"pronunciation", old.Pronunciation, new.Pronunciation},
		{"phonetic", old.Phonetic, new.Phonetic},
		{"telemetry", old.Telemetry, new.Telemetry},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}
