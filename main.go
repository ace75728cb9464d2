// Package main provides the entry point for the narrator CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/narration"
	"github.com/dgnsrekt/narrator/narration/engines"
	"github.com/dgnsrekt/narrator/script"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	outputPath string
	separate   bool
	maxChars   int
	delaySec   int
	modelID    string
	engineName string
	playAfter  bool
	quiet      bool

	rootCmd = &cobra.Command{
		Use:   "narrator [SCRIPT]",
		Short: "Narrate multi-speaker scripts with generative voices",
		Long: paragraph(
			fmt.Sprintf("\nTurn a multi-speaker script into %s, one provider-safe batch at a time.", keyword("narrated audio")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

// envSettings carries process-environment secrets that never belong in
// the config file.
type envSettings struct {
	APIKey string `env:"GEMINI_API_KEY"`
}

// readScript resolves the script source: an explicit file argument, "-",
// or piped stdin.
func readScript(args []string) (string, string, error) {
	if len(args) == 1 && args[0] != "-" {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("unable to read script: %w", err)
		}
		return string(b), args[0], nil
	}

	if yes, err := stdinIsPipe(); err != nil {
		return "", "", err
	} else if yes || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return string(b), "", nil
	}

	return "", "", errors.New("no script given: pass a file or pipe text on stdin")
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// buildEngine constructs the configured synthesizer backend.
func buildEngine(cfg narration.Config, settings envSettings) (engines.Synthesizer, error) {
	apiKey := settings.APIKey
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	return engines.New(cfg.Engine, engines.Config{
		Gemini: engines.GeminiConfig{APIKey: apiKey},
	})
}

// buildPipeline wires a pipeline with CLI progress reporting and a
// SIGINT-driven cancellation token. The first interrupt requests a
// cooperative stop so partial output is salvaged; the second kills the
// process.
func buildPipeline(cfg narration.Config, synth engines.Synthesizer) (*narration.Pipeline, *narration.Token) {
	token := narration.NewToken()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		log.Warn("Stop requested; finishing the current request and saving partial output. Interrupt again to quit immediately.")
		token.Abort()
		<-sig
		os.Exit(1)
	}()

	var progress narration.ProgressFunc
	if !quiet && isTerminal() {
		progress = func(status string) {
			fmt.Fprintf(os.Stderr, "\n%s\n", status)
		}
	}

	return narration.NewPipeline(synth, narration.Options{
		Model:              cfg.Model,
		MaxCharsPerBatch:   cfg.MaxCharsPerBatch,
		InterBatchDelaySec: cfg.InterBatchDelaySec,
		SampleRate:         cfg.SampleRate,
		Progress:           progress,
		Token:              token,
	}), token
}

func execute(_ *cobra.Command, args []string) error {
	var settings envSettings
	if err := env.Parse(&settings); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}

	cfg, err := narration.LoadConfigFromViper()
	if err != nil {
		return err
	}

	text, scriptPath, err := readScript(args)
	if err != nil {
		return err
	}

	lines := script.Parse(text)
	if len(lines) == 0 {
		return errors.New("script contains no dialogue lines")
	}
	tracks := narration.SpeakerOverrides(script.DefaultTracks(lines))
	for _, t := range tracks {
		if _, ok := narration.LookupVoice(t.Config.Voice); !ok {
			return fmt.Errorf("speaker %q uses unknown voice %q", t.Speaker, t.Config.Voice)
		}
	}
	log.Debug("parsed script", "lines", len(lines), "speakers", len(tracks))

	synth, err := buildEngine(cfg, settings)
	if err != nil {
		return err
	}
	pipeline, _ := buildPipeline(cfg, synth)

	if cfg.Separate {
		return runSeparate(pipeline, lines, tracks, scriptPath)
	}
	return runCombined(pipeline, lines, tracks, scriptPath)
}

func runCombined(pipeline *narration.Pipeline, lines []narration.DialogueLine, tracks []narration.SpeakerTrack, scriptPath string) error {
	container, err := pipeline.NarrateCombined(context.Background(), lines, tracks)
	if err != nil {
		var quota *narration.QuotaExceededError
		if errors.As(err, &quota) {
			return fmt.Errorf("daily quota exhausted; try again in about %s hours", quota.Hours())
		}
		return err
	}
	if container.Chunks() == 0 {
		return errors.New("no audio was produced")
	}

	out := outputPath
	if out == "" {
		out = defaultOutputName(scriptPath, "")
	}
	if err := container.WriteFile(out); err != nil {
		return err
	}
	log.Info("Wrote narration",
		"path", out,
		"size", humanize.Bytes(uint64(container.Len())),
		"duration", fmt.Sprintf("%.1fs", container.Duration()))

	if playAfter {
		return playback.Play(container.PCM(), container.SampleRate())
	}
	return nil
}

func runSeparate(pipeline *narration.Pipeline, lines []narration.DialogueLine, tracks []narration.SpeakerTrack, scriptPath string) error {
	results, err := pipeline.NarrateSeparate(context.Background(), lines, tracks)
	if err != nil {
		var quota *narration.QuotaExceededError
		if errors.As(err, &quota) {
			return fmt.Errorf("daily quota exhausted; try again in about %s hours", quota.Hours())
		}
		return err
	}
	if len(results) == 0 {
		return errors.New("no audio was produced")
	}

	for _, r := range results {
		out := defaultOutputName(scriptPath, r.Speaker)
		if outputPath != "" {
			out = filepath.Join(outputPath, filepath.Base(out))
		}
		if err := r.Audio.WriteFile(out); err != nil {
			return err
		}
		log.Info("Wrote speaker narration",
			"speaker", r.Speaker,
			"path", out,
			"size", humanize.Bytes(uint64(r.Audio.Len())))
	}
	return nil
}

// defaultOutputName derives the output filename from the script path and
// an optional speaker suffix.
func defaultOutputName(scriptPath, speaker string) string {
	base := "narration"
	if scriptPath != "" {
		base = strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	}
	if speaker != "" {
		base += "_" + sanitizeName(speaker)
	}
	return base + ".wav"
}

// sanitizeName makes a speaker name filesystem-safe.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (combined) or directory (separate mode)")
	rootCmd.Flags().BoolVar(&separate, "separate", false, "produce one file per speaker")
	rootCmd.Flags().IntVar(&maxChars, "max-chars", narration.DefaultMaxCharsPerBatch, "character budget per synthesis request")
	rootCmd.Flags().IntVar(&delaySec, "delay", narration.DefaultInterBatchDelaySec, "base pause in seconds between requests (0 disables)")
	rootCmd.Flags().StringVar(&modelID, "model", narration.DefaultModel, "synthesis model identifier")
	rootCmd.Flags().StringVar(&engineName, "engine", "gemini", "synthesis engine (gemini, mock)")
	rootCmd.Flags().BoolVar(&playAfter, "play", false, "play the narration when done")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("separate", rootCmd.Flags().Lookup("separate"))
	_ = viper.BindPFlag("max_chars_per_batch", rootCmd.Flags().Lookup("max-chars"))
	_ = viper.BindPFlag("inter_batch_delay", rootCmd.Flags().Lookup("delay"))
	_ = viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("engine", rootCmd.Flags().Lookup("engine"))

	rootCmd.AddCommand(configCmd, manCmd, previewCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrator")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrator.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

// isTerminal reports whether stderr goes to an interactive terminal;
// progress blocks are suppressed for non-interactive runs unless asked
// for.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
