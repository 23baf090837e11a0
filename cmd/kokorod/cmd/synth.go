package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/kokorod/internal/audio"
	"github.com/andrei-cloud/kokorod/internal/config"
	"github.com/andrei-cloud/kokorod/internal/engine"
	"github.com/andrei-cloud/kokorod/internal/voices"
)

var (
	synthText  string
	synthLang  string
	synthVoice string
	synthSpeed float32
	synthOut   string
)

// synthCmd represents the synth command.
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize text to a WAV file without the daemon",
	Long: `Load a single Kokoro pipeline, render the given text and write the result
as a mono 16-bit PCM WAV file. Model paths come from the configuration.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		text := strings.TrimSpace(synthText)
		if text == "" {
			return errors.New("--text must not be empty")
		}

		lang := synthLang
		if lang == "" {
			if synthVoice != "" {
				lang = synthVoice[:1] // voice names carry their language prefix.
			} else {
				lang = voices.DefaultLanguage
			}
		}

		var (
			v   voices.Voice
			err error
		)
		if synthVoice == "" {
			v, err = voices.Default(lang)
		} else {
			v, err = voices.Lookup(lang, synthVoice)
		}
		if err != nil {
			return err
		}

		speed := synthSpeed
		if speed == 0 {
			speed = voices.DefaultSpeed
		}
		if err := voices.ValidateSpeed(speed); err != nil {
			return err
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		factory, err := buildFactory(cfg.Engine)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		start := time.Now()
		eng, err := factory.New(ctx, lang)
		if err != nil {
			return fmt.Errorf("loading pipeline: %w", err)
		}
		defer func() { _ = eng.Close() }()
		loaded := time.Since(start)

		start = time.Now()
		res, err := eng.Synthesize(ctx, engine.Params{Text: text, Voice: v.Name, Speed: speed})
		if err != nil {
			return fmt.Errorf("synthesis: %w", err)
		}
		rendered := time.Since(start)

		wav := audio.EncodeWAV(res.Samples, res.SampleRate)
		if err := os.WriteFile(synthOut, wav, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", synthOut, err)
		}

		seconds := float64(len(res.Samples)) / float64(res.SampleRate)
		cmd.Printf("Voice: %s (%s)\n", v.Name, voices.LanguageName(lang))
		cmd.Printf("Audio: %.2fs at %d Hz\n", seconds, res.SampleRate)
		cmd.Printf("Load: %s  Synthesis: %s\n",
			loaded.Round(time.Millisecond), rendered.Round(time.Millisecond))
		cmd.Printf("Wrote %s (%d bytes)\n", synthOut, len(wav))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().StringVarP(&synthText, "text", "t", "", "text to synthesize")
	synthCmd.Flags().
		StringVarP(&synthLang, "lang", "l", "", "language code (defaults from voice or service default)")
	synthCmd.Flags().StringVar(&synthVoice, "voice", "", "voice name (default per language)")
	synthCmd.Flags().Float32Var(&synthSpeed, "speed", 0, "speaking speed (0.5-2.0)")
	synthCmd.Flags().StringVarP(&synthOut, "out", "o", "out.wav", "output WAV path")
	_ = synthCmd.MarkFlagRequired("text")
}
