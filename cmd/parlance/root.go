package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/parlance/internal/app"
	"github.com/MrWong99/parlance/internal/config"
)

var (
	configPath string
	envFile    string
	verbose    bool
	quiet      bool

	// logLevel is shared with the config watcher so reloads can change it.
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "parlance",
	Short: "Language-learning backend: chat replies, translation with IPA and audio, pronunciation scoring",
	Long: `Parlance serves conversational replies, translation with IPA annotation and
synthesized audio, and pronunciation scoring over HTTP. The one-shot
subcommands run the same pipeline stages from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		setupLogging(config.LogInfo, config.LogFormatText)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config (missing is fine)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}

// setupLogging installs the default logger. --verbose and --quiet override
// the configured level.
func setupLogging(level config.LogLevel, format config.LogFormat) {
	lvl := app.SlogLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	if quiet {
		lvl = slog.LevelError
	}
	logLevel.Set(lvl)

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads --config. When optional is set and the file does not
// exist, a defaulted config is returned instead.
func loadConfig(optional bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		setupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return cfg, nil
	}
	if optional && errors.Is(err, os.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "config", configPath)
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found, copy config.example.yaml to get started", configPath)
	}
	return nil, err
}
