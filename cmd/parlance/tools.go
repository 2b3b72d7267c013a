package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/parlance/internal/app"
	"github.com/MrWong99/parlance/internal/config"
	"github.com/MrWong99/parlance/internal/similarity"
	"github.com/MrWong99/parlance/internal/textchunk"
)

var (
	fromLang  string
	toLang    string
	withAudio bool
	maxLen    int
)

// translateOutput mirrors the /v1/translate response. Audio is left out
// unless --audio is given.
type translateOutput struct {
	Translated      string  `json:"translated"`
	SourceIPA       *string `json:"sourceIpa"`
	IPA             *string `json:"ipa"`
	OriginalAudio   string  `json:"originalAudio,omitempty"`
	TranslatedAudio string  `json:"translatedAudio,omitempty"`
	Degraded        bool    `json:"degraded"`
	DegradedChunks  []int   `json:"degradedChunks,omitempty"`
	AudioDegraded   bool    `json:"audioDegraded,omitempty"`
}

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text once and print the result as JSON",
	Long: `Translate runs the full translation pipeline (chunked translation, IPA for
English, audio for both sides) with the providers from --config, or the
defaults when the file does not exist.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

var scoreCmd = &cobra.Command{
	Use:   "score <reference> <transcript>",
	Short: "Print the similarity score of two sentences (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score := similarity.Score(args[0], similarity.StripTrailingPeriod(args[1]))
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", score)
		return err
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <text>",
	Short: "Split text into sentence-aligned chunks, one per line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := textchunk.Split(strings.Join(args, " "), maxLen)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVar(&fromLang, "from", "auto", "source language tag")
	translateCmd.Flags().StringVar(&toLang, "to", "en", "target language tag")
	translateCmd.Flags().BoolVar(&withAudio, "audio", false, "include base64 audio in the output")
	chunkCmd.Flags().IntVar(&maxLen, "max", 150, "maximum chunk length in bytes")

	rootCmd.AddCommand(translateCmd, scoreCmd, chunkCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	// A one-shot run never needs a shared history store.
	cfg.Chat.Store = config.StoreMemory

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	providers, err := app.BuildProviders(cfg, app.NewRegistry(), nil)
	if err != nil {
		return err
	}
	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		return err
	}
	defer func() { _ = application.Shutdown(context.Background()) }()

	res, err := application.Translator().Translate(ctx, strings.Join(args, " "), fromLang, toLang)
	if err != nil {
		return err
	}
	out := translateOutput{
		Translated:     res.Translated,
		SourceIPA:      res.SourceIPA,
		IPA:            res.TargetIPA,
		Degraded:       res.Degraded,
		DegradedChunks: res.DegradedChunks,
		AudioDegraded:  res.AudioDegraded,
	}
	if withAudio {
		out.OriginalAudio, out.TranslatedAudio = res.OriginalAudio, res.TranslatedAudio
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
