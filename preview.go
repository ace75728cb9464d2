package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/narration"
	"github.com/dgnsrekt/narrator/narration/wav"
)

var (
	previewVoice string
	previewTone  string
	previewTemp  float64
	previewPlay  bool
	previewOut   string

	previewCmd = &cobra.Command{
		Use:     "preview [TEXT]",
		Short:   "Synthesize a single line to audition a voice",
		Long:    paragraph(fmt.Sprintf("\nSynthesize one line of text with a chosen voice, %s. Repeated previews of the same line are served from a local cache.", keyword("without batching"))),
		Example: paragraph("narrator preview \"Once upon a time\" --voice Puck --play"),
		Args:    cobra.ExactArgs(1),
		RunE:    runPreview,
	}

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List the available voices",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			for _, v := range narration.Voices() {
				fmt.Printf("%-12s %s\n", v.ID, v.Name)
			}
		},
	}
)

func runPreview(_ *cobra.Command, args []string) error {
	text := strings.TrimSpace(args[0])
	if text == "" {
		return fmt.Errorf("nothing to preview")
	}

	var settings envSettings
	if err := env.Parse(&settings); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	cfg, err := narration.LoadConfigFromViper()
	if err != nil {
		return err
	}

	voice := cfg.DefaultVoice
	if previewVoice != "" {
		voice = previewVoice
	}
	if _, ok := narration.LookupVoice(voice); !ok {
		return fmt.Errorf("unknown voice %q; run 'narrator voices' for the catalog", voice)
	}
	temperature := cfg.DefaultTemperature
	if previewTemp != 0 {
		temperature = previewTemp
	}
	speaker := narration.SpeakerConfig{
		Voice:           voice,
		Volume:          1.0,
		ToneDescription: previewTone,
		Temperature:     temperature,
	}

	store, err := openPreviewCache()
	if err != nil {
		log.Debug("preview cache unavailable", "err", err)
	} else {
		defer store.Close()
	}

	key := cache.Key(cfg.Model, speaker.Voice, speaker.ToneDescription, speaker.Temperature, text)
	var container *wav.Container
	if store != nil {
		if pcm, ok := store.Get(key); ok {
			log.Debug("preview served from cache", "key", key[:12])
			container = wav.NewWithRate(cfg.SampleRate, pcm)
		}
	}

	if container == nil {
		synth, err := buildEngine(cfg, settings)
		if err != nil {
			return err
		}
		pipeline, _ := buildPipeline(cfg, synth)
		container, err = pipeline.NarrateLine(context.Background(), text, speaker)
		if err != nil {
			return err
		}
		if store != nil {
			if err := store.Put(key, container.PCM()); err != nil {
				log.Debug("could not cache preview", "err", err)
			}
		}
	}

	if previewOut != "" {
		if err := container.WriteFile(previewOut); err != nil {
			return err
		}
		log.Info("Wrote preview", "path", previewOut)
	}
	if previewPlay || previewOut == "" {
		return playback.Play(container.PCM(), container.SampleRate())
	}
	return nil
}

func openPreviewCache() (*cache.Cache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return cache.New(filepath.Join(dir, "narrator", "previews"), cache.DefaultCapacity)
}

func init() {
	previewCmd.Flags().StringVar(&previewVoice, "voice", "", "voice to audition (defaults to the configured voice)")
	previewCmd.Flags().StringVar(&previewTone, "tone", "", "persona constraint, e.g. \"gravelly and slow:\"")
	previewCmd.Flags().Float64Var(&previewTemp, "temperature", 0, "sampling temperature (defaults to the configured value)")
	previewCmd.Flags().BoolVar(&previewPlay, "play", false, "play the preview after writing it")
	previewCmd.Flags().StringVarP(&previewOut, "output", "o", "", "write the preview to a WAV file")
}
